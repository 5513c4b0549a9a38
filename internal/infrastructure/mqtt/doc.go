// Package mqtt provides MQTT client connectivity for the mesh supervisor.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The serial wire protocol is the supervisor's authoritative surface; MQTT
// mirrors its outbound events to network consumers and carries inbound
// sensor readings and mesh notifications from companion services.
//
//	Serial host ↔ Supervisor ↔ MQTT Broker ↔ Sensors / mesh radio services
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to inbound sensor readings
//	err = client.Subscribe(mqtt.Topics{}.Sensor(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Mirror a telemetry event
//	client.Publish(mqtt.Topics{}.Telemetry(), payload, 1, false)
package mqtt
