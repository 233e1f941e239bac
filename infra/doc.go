// Package infra contains technical adapters such as the MQTT work order
// client, metrics exporters and the landscape document codec. These
// packages should depend only on the interfaces defined in the core
// packages.
package infra
