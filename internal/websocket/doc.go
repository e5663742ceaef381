// Package websocket pushes dataset events to connected dashboards so
// they can re-fetch instead of polling. A single Hub fans broadcast
// messages out to registered clients; each client runs a read pump and
// a write pump over a gorilla/websocket connection.
//
// The Hub implements services.RefreshNotifier and services.ClientCounter,
// which is how the service layer and health checks reach it without
// depending on this package's internals.
package websocket
