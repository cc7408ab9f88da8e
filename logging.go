// FILE: lixenwraith/propcfg/logging.go
package propcfg

import (
	"go.uber.org/zap"
)

// LogHandlers returns callbacks that log deltas at Info and failures at Warn.
// Values of redacted properties are replaced before logging.
func LogHandlers(logger *zap.Logger) Callbacks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return DirectHandlers{
		OnChange: func(d *Delta) error {
			logger.Info("property changed", append(payloadFields(&d.Payload),
				zap.String("old", display(d.Descriptor, d.OldValue)),
				zap.String("new", display(d.Descriptor, d.NewValue)),
			)...)
			return nil
		},
		OnFailure: func(f *Failure) error {
			logger.Warn("property configuration failed", append(payloadFields(&f.Payload),
				zap.String("old", displayOptional(f.Descriptor, f.OldValue)),
				zap.String("new", displayOptional(f.Descriptor, f.NewValue)),
				zap.Error(f.Err),
			)...)
			return nil
		},
	}
}

func payloadFields(p *Payload) []zap.Field {
	fields := []zap.Field{
		zap.String("type", p.Property.owner.fullName),
		zap.String("property", p.Property.name),
		zap.String("source", string(p.Source)),
	}
	if p.Owner != nil {
		fields = append(fields, zap.Stringer("owner", p.Owner))
	}
	return fields
}
