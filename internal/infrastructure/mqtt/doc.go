// Package mqtt adapts the paho MQTT client to a pollable, single-shot
// session and builds TLS configurations from PEM material.
//
// A Session owns one network connection to one broker. It never reconnects:
// connection loss and CONNACK refusals are reported through Poll and the
// caller decides whether to open a new session.
//
//	s, err := mqtt.NewSession(mqtt.Options{Host: "localhost", Port: 1883, ClientID: "desk"}, nil)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for {
//	    ev, err := s.Poll(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    // handle ev
//	}
package mqtt
