package handler

import (
	"github.com/nerrad567/cotbridge/internal/cot"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// DumpMessage implements listener.Dumper. It logs the event envelope, the
// derived description and symbol code, the point and every detail
// sub-element as one info entry. It is only called for listeners running in
// debug mode, so the dump is visible at the default log level.
func (h *Enricher) DumpMessage(msg listener.Message) {
	ev, err := cot.Parse(cot.TrimTrailing(msg.Text))
	if err != nil {
		h.logger.Error("failed to decode CoT event for dump",
			"port", msg.Port,
			"error", err,
		)
		return
	}

	args := make([]any, 0, 64)
	for _, f := range DumpFields(h, ev) {
		args = append(args, f.Key, f.Value)
	}
	h.logger.Info("cot event dump", args...)
}

// DumpFields returns the diagnostic fields for ev in display order: the
// envelope with description and symbol code following type, then point and
// detail fields.
func DumpFields(h *Enricher, ev *cot.Event) []cot.Field {
	envelope := ev.Fields()
	fields := make([]cot.Field, 0, len(envelope)+2)
	for _, f := range envelope {
		fields = append(fields, f)
		if f.Key == "type" {
			fields = append(fields,
				cot.Field{Key: "description", Value: h.symbolizer.Description(ev.Type)},
				cot.Field{Key: "symbol_code", Value: h.symbolizer.SymbolCode(ev.Type)},
			)
		}
	}
	return append(fields, ev.DetailFields()...)
}
