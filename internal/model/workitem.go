package model

// WorkItem is the aggregated record produced for one source issue.
// It is built once during extraction and not modified afterwards.
type WorkItem struct {
	ID   string `json:"id"`
	Link string `json:"link"`
	Name string `json:"name"`
	Type string `json:"type"`

	// Stages lists the visited stages in order of first entry.
	// Stages the item never entered are absent.
	Stages []StageRecord `json:"stages"`

	// Attributes maps attribute labels to their projected values.
	Attributes map[string]string `json:"attributes"`
}

// Stage returns the record for the named stage, if the item visited it.
func (w WorkItem) Stage(name string) (StageRecord, bool) {
	for _, s := range w.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageRecord{}, false
}
