package decode

import (
	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
	"wmosonde/internal/station"
)

// Decoder turns one raw WMO message into zero or more decoded levels.
type Decoder interface {
	Decode(msg bulletin.RawMessage, stations *station.Table) []level.Level
}

type decoderFunc func(msg bulletin.RawMessage, stations *station.Table) []level.Level

func (f decoderFunc) Decode(msg bulletin.RawMessage, stations *station.Table) []level.Level {
	return f(msg, stations)
}

// Registry dispatches a RawMessage to the Decoder registered for its
// message type: one decoder per type, since a WMO message's type is
// never ambiguous and needs no priority-ordered fallback chain to resolve.
type Registry struct {
	byType map[bulletin.MessageType]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[bulletin.MessageType]Decoder)}
}

// Register binds a Decoder to a message type, replacing any prior binding.
func (r *Registry) Register(t bulletin.MessageType, d Decoder) {
	r.byType[t] = d
}

// Dispatch runs the Decoder registered for msg.Type, or returns nil if
// none is registered.
func (r *Registry) Dispatch(msg bulletin.RawMessage, stations *station.Table) []level.Level {
	d, ok := r.byType[msg.Type]
	if !ok {
		return nil
	}
	return d.Decode(msg, stations)
}

// RegisteredTypes lists the message types this registry has a decoder for.
func (r *Registry) RegisteredTypes() []bulletin.MessageType {
	out := make([]bulletin.MessageType, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	return out
}

var defaultRegistry = buildDefaultRegistry()

func buildDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(bulletin.TTAA, decoderFunc(DecodeMandatory))
	r.Register(bulletin.TTCC, decoderFunc(DecodeMandatory))
	r.Register(bulletin.TTBB, decoderFunc(sigTempDecoder))
	r.Register(bulletin.TTDD, decoderFunc(sigTempDecoder))
	r.Register(bulletin.PPBB, decoderFunc(sigWindDecoder))
	r.Register(bulletin.PPDD, decoderFunc(sigWindDecoder))
	return r
}

func sigTempDecoder(msg bulletin.RawMessage, _ *station.Table) []level.Level {
	return DecodeSigTemp(msg)
}

func sigWindDecoder(msg bulletin.RawMessage, _ *station.Table) []level.Level {
	return DecodeSigWind(msg)
}

// Decode dispatches msg through the package's default registry, the entry
// point every higher-level caller (the root package's DecodeMessage, which
// the CLI reaches through DecodeBulletin, and the ingest subscriber) uses.
func Decode(msg bulletin.RawMessage, stations *station.Table) []level.Level {
	return defaultRegistry.Dispatch(msg, stations)
}
