package bankadapter

import (
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// Registry probes a fixed, deterministic list of bank adapters over OCR
// text and returns the first one whose Detect reports a match. Adding a
// bank is additive: new adapter file, one more entry in New, no change to
// Detect's probing logic.
type Registry struct {
	adapters []interfaces.BankAdapter
	logger   arbor.ILogger
}

func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		logger: logger,
		adapters: []interfaces.BankAdapter{
			NewBCAAdapter(),
			NewMandiriAdapter(),
			NewBNIAdapter(),
			NewBRIAdapter(),
			NewCIMBAdapter(),
			NewPermataAdapter(),
			NewDanamonAdapter(),
			NewOCBCAdapter(),
			NewPaninAdapter(),
			NewMaybankAdapter(),
			NewBTNAdapter(),
		},
	}
}

// Detect returns the first registered adapter whose Detect matches ocrText,
// probed in registration order. The registry is read-only after
// construction: no adapter is added, removed, or reordered at runtime.
func (r *Registry) Detect(ocrText string) (interfaces.BankAdapter, bool) {
	for _, a := range r.adapters {
		if a.Detect(ocrText) {
			return a, true
		}
	}
	return nil, false
}

// Adapters returns the full registered set in probe order, primarily for
// diagnostics and tests.
func (r *Registry) Adapters() []interfaces.BankAdapter {
	out := make([]interfaces.BankAdapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}
