// Package mqtt provides MQTT client connectivity for RentState Hub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// IoT devices installed in rental properties publish their messages to the
// broker as an alternative to the HTTP ingest endpoint. The hub subscribes
// to the device branch and feeds messages into the same registry pipeline.
//
//	IoT Devices → MQTT Broker → RentState Hub
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device messages
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceMessages(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
