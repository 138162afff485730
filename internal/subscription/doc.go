// Package subscription keeps saved topic subscriptions per broker and
// replays them whenever a broker session comes up.
//
// Restorer observes connection events as a connection.Sink. When a broker
// reports connected it subscribes every active saved subscription in the
// background. Changes made while connected take effect on the live session
// straight away.
package subscription
