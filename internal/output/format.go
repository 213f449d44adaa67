package output

import (
	"fmt"
	"sort"

	"vtlookup/internal/engine"
	"vtlookup/internal/vt"
)

// Section titles per indicator kind.
var sectionTitles = map[string]string{
	string(vt.KindFile):      "Files",
	string(vt.KindDomain):    "Domains",
	string(vt.KindIPAddress): "IP Addresses",
	string(vt.KindURL):       "URLs",
}

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string // file/domain/ip_address/url
	Title string
	Items []Item
}

type ReportView struct {
	Sections []Section
	Total    int
	Counts   map[string]int // per status
}

// BuildReport groups verdicts into one section per kind. Sections follow the
// supported kind order; unknown kinds come last, sorted by name.
func BuildReport(results []engine.CheckResult) ReportView {
	sec := map[string]*Section{}
	var extra []string

	for _, r := range results {
		kind := r.Kind
		if kind == "" {
			kind = "unknown"
		}
		s, ok := sec[kind]
		if !ok {
			title, known := sectionTitles[kind]
			if !known {
				title = kind
				extra = append(extra, kind)
			}
			s = &Section{ID: kind, Title: title}
			sec[kind] = s
		}

		it := Item{
			Key:    r.ID,
			Label:  r.ID,
			Status: r.Status,
		}
		if r.Status == engine.StatusUnknown {
			it.Note = "not found"
		} else {
			it.Value = r.Ratio * 100
			it.Unit = "%"
			it.Note = fmt.Sprintf("%d/%d", r.Detections, r.Scans)
		}
		s.Items = append(s.Items, it)
	}

	view := ReportView{Total: len(results), Counts: engine.Summary(results)}
	for _, k := range vt.SupportedKinds() {
		if s, ok := sec[string(k)]; ok {
			view.Sections = append(view.Sections, *s)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		view.Sections = append(view.Sections, *sec[k])
	}
	return view
}

func (v ReportView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
