package profile

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// xmlDoc is the on-disk document shape. Profile files are UTF-8 XML with
// a standard prolog; encoding/xml is the only XML codec used
// anywhere in this repository's retrieval pack, so it is the stdlib
// exception documented in DESIGN.md.
type xmlDoc struct {
	XMLName xml.Name  `xml:"profile"`
	Name    string    `xml:"name,attr"`
	Type    string    `xml:"type,attr"`

	Protected bool `xml:"protected,attr,omitempty"`
	Hidden    bool `xml:"hidden,attr,omitempty"`
	Enabled   bool `xml:"enabled,attr"`

	Keys        []xmlKey     `xml:"key"`
	SubProfiles []xmlDoc     `xml:"profile"`
	Sync        *xmlSyncMeta `xml:"sync-meta"`
}

type xmlKey struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlSyncMeta struct {
	DestinationType string       `xml:"destination-type,attr,omitempty"`
	RetryIntervals  string       `xml:"retry-intervals,attr,omitempty"`
	Schedule        *xmlSchedule `xml:"schedule"`
}

type xmlSchedule struct {
	Enabled  bool `xml:"enabled,attr"`
	Days     uint8 `xml:"days,attr"`
	Start    int  `xml:"start,attr"`
	End      int  `xml:"end,attr"`
	Interval int  `xml:"interval-minutes,attr"`
}

const indentPrefix = ""
const indentStep = "  "

// marshalProfile renders p (and, if sp is non-nil, its sync metadata) to
// the canonical indented XML document form.
func marshalProfile(p *Profile, sp *SyncProfile) ([]byte, error) {
	doc := toXMLDoc(p, sp)

	out, err := xml.MarshalIndent(doc, indentPrefix, indentStep)
	if err != nil {
		return nil, fmt.Errorf("profile: marshal %s/%s: %w", p.Type, p.Name, err)
	}

	var buf strings.Builder
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')
	return []byte(buf.String()), nil
}

func toXMLDoc(p *Profile, sp *SyncProfile) xmlDoc {
	doc := xmlDoc{
		Name:      p.Name,
		Type:      string(p.Type),
		Protected: p.Protected,
		Hidden:    p.Hidden,
		Enabled:   p.Enabled,
	}

	keyNames := make([]string, 0, len(p.Keys))
	for k := range p.Keys {
		keyNames = append(keyNames, k)
	}
	sort.Strings(keyNames)
	for _, k := range keyNames {
		doc.Keys = append(doc.Keys, xmlKey{Name: k, Value: p.Keys[k]})
	}

	for _, sub := range p.SubProfiles {
		doc.SubProfiles = append(doc.SubProfiles, toXMLDoc(sub, nil))
	}

	if sp != nil {
		meta := &xmlSyncMeta{
			DestinationType: string(sp.DestinationType),
		}
		if len(sp.RetryIntervals) > 0 {
			parts := make([]string, len(sp.RetryIntervals))
			for i, d := range sp.RetryIntervals {
				parts[i] = strconv.Itoa(int(d / time.Minute))
			}
			meta.RetryIntervals = strings.Join(parts, ",")
		}
		if sp.Schedule.Enabled || sp.Schedule.Days != 0 || sp.Schedule.Interval != 0 {
			meta.Schedule = &xmlSchedule{
				Enabled:  sp.Schedule.Enabled,
				Days:     uint8(sp.Schedule.Days),
				Start:    sp.Schedule.TimeOfDayMin,
				End:      sp.Schedule.TimeOfDayMax,
				Interval: int(sp.Schedule.Interval / time.Minute),
			}
		}
		doc.Sync = meta
	}

	return doc
}

// unmarshalProfile parses document data into a bare Profile. Parse
// failure returns an error and leaves the caller's filesystem state
// untouched (the caller decides what to do with the error).
func unmarshalProfile(data []byte) (*Profile, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	return fromXMLDoc(doc), nil
}

func fromXMLDoc(doc xmlDoc) *Profile {
	p := &Profile{
		Name:      doc.Name,
		Type:      Type(doc.Type),
		Protected: doc.Protected,
		Hidden:    doc.Hidden,
		Enabled:   doc.Enabled,
		Keys:      make(map[string]string, len(doc.Keys)),
	}
	for _, k := range doc.Keys {
		p.Keys[k.Name] = k.Value
	}
	for _, sub := range doc.SubProfiles {
		p.SubProfiles = append(p.SubProfiles, fromXMLDoc(sub))
	}
	return p
}

// syncMetaFromXML extracts SyncProfile-only attributes from the parsed
// document, for callers that know the profile is of type sync.
func syncMetaFromXML(data []byte) (DestinationType, []time.Duration, SyncSchedule, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", nil, SyncSchedule{}, fmt.Errorf("profile: parse sync metadata: %w", err)
	}
	if doc.Sync == nil {
		return "", nil, SyncSchedule{}, nil
	}

	var intervals []time.Duration
	if doc.Sync.RetryIntervals != "" {
		for _, part := range strings.Split(doc.Sync.RetryIntervals, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return "", nil, SyncSchedule{}, fmt.Errorf("profile: invalid retry interval %q: %w", part, err)
			}
			intervals = append(intervals, time.Duration(n)*time.Minute)
		}
	}

	var schedule SyncSchedule
	if doc.Sync.Schedule != nil {
		schedule = SyncSchedule{
			Enabled:      doc.Sync.Schedule.Enabled,
			Days:         Weekday(doc.Sync.Schedule.Days),
			TimeOfDayMin: doc.Sync.Schedule.Start,
			TimeOfDayMax: doc.Sync.Schedule.End,
			Interval:     time.Duration(doc.Sync.Schedule.Interval) * time.Minute,
		}
	}

	return DestinationType(doc.Sync.DestinationType), intervals, schedule, nil
}
