package profile

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
)

type xmlLogDoc struct {
	XMLName xml.Name      `xml:"synclog"`
	Results []xmlSyncResult `xml:"result"`
}

type xmlSyncResult struct {
	Start     string `xml:"start,attr"`
	End       string `xml:"end,attr"`
	Major     string `xml:"major,attr"`
	Minor     string `xml:"minor,attr"`
	TargetID  string `xml:"target,attr,omitempty"`
	Scheduled bool   `xml:"scheduled,attr"`
}

func marshalLog(log *SyncLog) ([]byte, error) {
	doc := xmlLogDoc{}
	if log != nil {
		for _, r := range log.Results {
			doc.Results = append(doc.Results, xmlSyncResult{
				Start:     r.Start.UTC().Format(time.RFC3339Nano),
				End:       r.End.UTC().Format(time.RFC3339Nano),
				Major:     string(r.Major),
				Minor:     string(r.Minor),
				TargetID:  r.TargetID,
				Scheduled: r.Scheduled,
			})
		}
	}

	out, err := xml.MarshalIndent(doc, indentPrefix, indentStep)
	if err != nil {
		return nil, fmt.Errorf("profile: marshal log: %w", err)
	}

	var buf strings.Builder
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')
	return []byte(buf.String()), nil
}

func unmarshalLog(data []byte) (*SyncLog, error) {
	var doc xmlLogDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: parse log: %w", err)
	}

	log := &SyncLog{}
	for _, r := range doc.Results {
		start, _ := time.Parse(time.RFC3339Nano, r.Start)
		end, _ := time.Parse(time.RFC3339Nano, r.End)
		log.Append(SyncResult{
			Start:     start,
			End:       end,
			Major:     synccode.MajorOutcome(r.Major),
			Minor:     synccode.MinorCode(r.Minor),
			TargetID:  r.TargetID,
			Scheduled: r.Scheduled,
		})
	}
	return log, nil
}
