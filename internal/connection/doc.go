// Package connection manages live MQTT sessions for any number of brokers.
//
// The Manager is the command surface: Connect, Disconnect, Publish,
// Subscribe, Unsubscribe and IsConnected. Each successful Connect registers a
// handle in the Registry and starts one driver goroutine that polls the
// session's Engine, reports state transitions and inbound messages to a Sink,
// and removes its own registry entry when it exits.
//
// State flow for one broker:
//
//	disconnected --Connect--> connecting --CONNACK accepted--> connected
//	connecting/connected --refusal or transport error--> error (driver exits)
//	any --Disconnect--> disconnected (driver exits)
//
// There is no automatic reconnection. A broker that fails stays down until a
// caller invokes Connect again.
package connection
