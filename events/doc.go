// Package events defines the envelope that carries a payload through the broker
// and the hook a consumer implements to receive delivered events.
//
// An Event is created once per publish and handed, unchanged, to every queue
// subscribed to its topic. Consumers must treat it as read-only.
//
// Each event carries:
//   - ID: a version 7 UUID assigned at publish time
//   - Topic: the topic it was published to
//   - Payload: the producer's value
//   - Timestamp: when it was published
//   - Meta: optional structured metadata
//
// The JSON form is produced with sjson and read back with gjson so the payload
// can be decoded lazily:
//
//	{"type":"event","id":"...","topic":"POST_UPDATE","payload":{...},"timestamp":"..."}
package events
