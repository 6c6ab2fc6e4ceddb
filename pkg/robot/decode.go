package robot

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// The raw* types mirror output.xml. They accept both the Robot Framework 7
// layout (start/elapsed attributes, owner, meta) and the older layouts
// (starttime/endtime, library, tags/arguments wrappers, metadata/item).

type rawRobot struct {
	XMLName    xml.Name      `xml:"robot"`
	Generator  string        `xml:"generator,attr"`
	Generated  string        `xml:"generated,attr"`
	Suite      *rawSuite     `xml:"suite"`
	Statistics rawStatistics `xml:"statistics"`
}

type rawStatistics struct {
	Total []rawStat `xml:"total>stat"`
}

type rawStat struct {
	Pass  int    `xml:"pass,attr"`
	Fail  int    `xml:"fail,attr"`
	Skip  int    `xml:"skip,attr"`
	Label string `xml:",chardata"`
}

type rawSuite struct {
	ID             string      `xml:"id,attr"`
	Name           string      `xml:"name,attr"`
	Source         string      `xml:"source,attr"`
	Doc            string      `xml:"doc"`
	Meta           []rawMeta   `xml:"meta"`
	LegacyMetadata []rawMeta   `xml:"metadata>item"`
	Suites         []*rawSuite `xml:"suite"`
	Tests          []*rawTest  `xml:"test"`
	Status         rawStatus   `xml:"status"`
}

type rawMeta struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type rawTest struct {
	ID           string     `xml:"id,attr"`
	Name         string     `xml:"name,attr"`
	Line         int        `xml:"line,attr"`
	TimeoutAttr  string     `xml:"timeout,attr"`
	Doc          string     `xml:"doc"`
	Tags         []string   `xml:"tag"`
	LegacyTags   []string   `xml:"tags>tag"`
	Timeout      rawTimeout `xml:"timeout"`
	Status       rawStatus  `xml:"status"`
	BodyElements []rawNode  `xml:",any"`
}

type rawTimeout struct {
	Value string `xml:"value,attr"`
}

type rawStatus struct {
	Status    string `xml:"status,attr"`
	Start     string `xml:"start,attr"`
	Elapsed   string `xml:"elapsed,attr"`
	StartTime string `xml:"starttime,attr"`
	EndTime   string `xml:"endtime,attr"`
	Message   string `xml:",chardata"`
}

// rawNode is a generic element used for keyword bodies, whose children are
// order-sensitive and mix several element kinds.
type rawNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []rawNode  `xml:",any"`
}

func (n *rawNode) attr(names ...string) string {
	for _, name := range names {
		for _, a := range n.Attrs {
			if a.Name.Local == name {
				return a.Value
			}
		}
	}

	return ""
}

// bodyElements are the element names that become keywords.
var bodyElements = map[string]struct{}{
	"kw":       {},
	"for":      {},
	"iter":     {},
	"if":       {},
	"branch":   {},
	"try":      {},
	"while":    {},
	"group":    {},
	"variable": {},
	"return":   {},
	"break":    {},
	"continue": {},
	"error":    {},
}

func (r *rawRobot) convert() (*Result, error) {
	if r.Suite == nil {
		return nil, ErrNoSuite
	}

	suite, err := r.Suite.convert()
	if err != nil {
		return nil, err
	}

	generated, err := parseTimestamp(r.Generated)
	if err != nil {
		return nil, fmt.Errorf("robot generated: %w", err)
	}

	result := &Result{
		Generator: r.Generator,
		Generated: generated,
		Suite:     suite,
	}

	if stat, ok := r.Statistics.allTests(); ok {
		result.Statistics.Total = stat
	} else {
		result.Statistics.Total = suite.Statistics()
	}

	return result, nil
}

// allTests picks the "All Tests" total. Reports from Robot Framework 3
// also carry a "Critical Tests" total, which is ignored.
func (s *rawStatistics) allTests() (Stat, bool) {
	if len(s.Total) == 0 {
		return Stat{}, false
	}

	chosen := s.Total[len(s.Total)-1]

	for _, st := range s.Total {
		if strings.TrimSpace(st.Label) == "All Tests" {
			chosen = st

			break
		}
	}

	return Stat{Passed: chosen.Pass, Failed: chosen.Fail, Skipped: chosen.Skip}, true
}

func (r *rawSuite) convert() (*Suite, error) {
	status, err := r.Status.convert()
	if err != nil {
		return nil, fmt.Errorf("suite %q: %w", r.Name, err)
	}

	suite := &Suite{
		ID:       r.ID,
		Name:     r.Name,
		Source:   r.Source,
		Doc:      r.Doc,
		Metadata: make(map[string]string, len(r.Meta)+len(r.LegacyMetadata)),
		Status:   status,
		Suites:   make([]*Suite, 0, len(r.Suites)),
		Tests:    make([]*Test, 0, len(r.Tests)),
	}

	for _, m := range append(r.LegacyMetadata, r.Meta...) {
		suite.Metadata[m.Name] = m.Value
	}

	for _, rt := range r.Tests {
		test, err := rt.convert()
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", r.Name, err)
		}

		suite.Tests = append(suite.Tests, test)
	}

	for _, rs := range r.Suites {
		child, err := rs.convert()
		if err != nil {
			return nil, err
		}

		suite.Suites = append(suite.Suites, child)
	}

	return suite, nil
}

func (r *rawTest) convert() (*Test, error) {
	status, err := r.Status.convert()
	if err != nil {
		return nil, fmt.Errorf("test %q: %w", r.Name, err)
	}

	test := &Test{
		ID:      r.ID,
		Name:    r.Name,
		Doc:     r.Doc,
		Tags:    append(append([]string{}, r.LegacyTags...), r.Tags...),
		Timeout: r.Timeout.Value,
		Lineno:  r.Line,
		Status:  status,
	}

	if test.Timeout == "" {
		test.Timeout = r.TimeoutAttr
	}

	for i := range r.BodyElements {
		node := &r.BodyElements[i]
		if _, ok := bodyElements[node.XMLName.Local]; !ok {
			continue
		}

		kw, err := node.keyword()
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", r.Name, err)
		}

		switch kw.Type {
		case "SETUP":
			test.Setup = kw
		case "TEARDOWN":
			test.Teardown = kw
		default:
			test.Body = append(test.Body, kw)
		}
	}

	return test, nil
}

func (r *rawStatus) convert() (Status, error) {
	status := Status{
		Status:  r.Status,
		Message: strings.TrimSpace(r.Message),
	}

	if r.Start != "" {
		start, err := parseTimestamp(r.Start)
		if err != nil {
			return Status{}, err
		}

		status.StartTime = start

		if r.Elapsed != "" {
			elapsed, err := parseElapsed(r.Elapsed)
			if err != nil {
				return Status{}, err
			}

			status.Elapsed = elapsed
			status.EndTime = start.Add(elapsed)
		}

		return status, nil
	}

	start, err := parseTimestamp(r.StartTime)
	if err != nil {
		return Status{}, err
	}

	end, err := parseTimestamp(r.EndTime)
	if err != nil {
		return Status{}, err
	}

	status.StartTime = start
	status.EndTime = end

	if !start.IsZero() && !end.IsZero() && end.After(start) {
		status.Elapsed = end.Sub(start)
	}

	if r.Elapsed != "" {
		elapsed, err := parseElapsed(r.Elapsed)
		if err != nil {
			return Status{}, err
		}

		status.Elapsed = elapsed
	}

	return status, nil
}

// keyword converts a body element and its children.
func (n *rawNode) keyword() (*Keyword, error) {
	kw := &Keyword{
		Type:  strings.ToUpper(n.attr("type")),
		Name:  n.attr("name"),
		Owner: n.attr("owner", "library"),
	}

	if element := n.XMLName.Local; element != "kw" {
		kw.Type = strings.ToUpper(element)
		if t := n.attr("type"); t != "" && element == "branch" {
			kw.Type = strings.ToUpper(t)
		}

		if kw.Name == "" {
			kw.Name = n.attr("condition", "flavor")
		}
	}

	if kw.Type == "" || kw.Type == "KW" {
		kw.Type = "KEYWORD"
	}

	for i := range n.Children {
		child := &n.Children[i]

		switch child.XMLName.Local {
		case "var":
			if n.XMLName.Local == "kw" {
				kw.Assign = append(kw.Assign, child.Text)
			} else {
				kw.Args = append(kw.Args, child.Text)
			}
		case "arg", "value":
			kw.Args = append(kw.Args, child.Text)
		case "arguments":
			for _, a := range child.Children {
				kw.Args = append(kw.Args, a.Text)
			}
		case "assign":
			for _, a := range child.Children {
				kw.Assign = append(kw.Assign, a.Text)
			}
		case "tag":
			kw.Tags = append(kw.Tags, child.Text)
		case "tags":
			for _, a := range child.Children {
				kw.Tags = append(kw.Tags, a.Text)
			}
		case "doc":
			kw.Doc = child.Text
		case "msg":
			msg, err := child.message()
			if err != nil {
				return nil, err
			}

			kw.Messages = append(kw.Messages, msg)
		case "status":
			status, err := child.status()
			if err != nil {
				return nil, fmt.Errorf("keyword %q: %w", kw.Name, err)
			}

			kw.Status = status
		default:
			if _, ok := bodyElements[child.XMLName.Local]; !ok {
				continue
			}

			nested, err := child.keyword()
			if err != nil {
				return nil, err
			}

			kw.Body = append(kw.Body, nested)
		}
	}

	return kw, nil
}

func (n *rawNode) message() (Message, error) {
	ts, err := parseTimestamp(n.attr("time", "timestamp"))
	if err != nil {
		return Message{}, fmt.Errorf("message: %w", err)
	}

	html := strings.ToLower(n.attr("html"))

	return Message{
		Level:     n.attr("level"),
		Text:      n.Text,
		Timestamp: ts,
		HTML:      html == "true" || html == "yes",
	}, nil
}

func (n *rawNode) status() (Status, error) {
	raw := rawStatus{
		Status:    n.attr("status"),
		Start:     n.attr("start"),
		Elapsed:   n.attr("elapsed"),
		StartTime: n.attr("starttime"),
		EndTime:   n.attr("endtime"),
		Message:   n.Text,
	}

	return raw.convert()
}
