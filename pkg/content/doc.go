// Package content converts between wire payloads and typed Go values.
//
// A Registry holds an ordered set of Converters. Resolution walks the
// converters in ascending Order and returns the first one that accepts the
// requested Kind and payload; converters sharing an Order keep their
// registration order.
//
// # Kinds
//
// Go values are mapped onto a small, closed set of kinds (see KindOf):
//
//   - KindRaw: a *Content, passed through untouched
//   - KindString, KindBytes, KindStream: textual, binary and streaming bodies
//   - KindImage: image.Image, encoded as png, jpeg or gif
//   - KindForm: url.Values, encoded as application/x-www-form-urlencoded
//   - KindValue: any other value, encoded by the media type (JSON, XML, YAML)
//   - KindMultipart: a *MultiPart, assembled as multipart/form-data
//
// # Usage
//
//	registry := content.DefaultRegistry()
//
//	c, err := registry.Serialize(content.KindValue, "application/json", payload)
//
//	var out Payload
//	err = registry.Deserialize(content.KindValue, c, &out)
package content
