package robot

// ToMap returns the test's complete attribute set in the shape Robot
// Framework uses when serializing results. Optional attributes are left out
// when empty.
func (t *Test) ToMap() map[string]any {
	m := map[string]any{
		"id":           t.ID,
		"name":         t.Name,
		"status":       t.Status.Status,
		"elapsed_time": t.Status.Elapsed.Seconds(),
		"body":         keywordMaps(t.Body),
	}

	if t.Doc != "" {
		m["doc"] = t.Doc
	}

	if len(t.Tags) > 0 {
		m["tags"] = t.Tags
	}

	if t.Timeout != "" {
		m["timeout"] = t.Timeout
	}

	if t.Lineno > 0 {
		m["lineno"] = t.Lineno
	}

	if t.Status.Message != "" {
		m["message"] = t.Status.Message
	}

	addTimes(m, t.Status)

	if t.Setup != nil {
		m["setup"] = t.Setup.ToMap()
	}

	if t.Teardown != nil {
		m["teardown"] = t.Teardown.ToMap()
	}

	return m
}

// ToMap returns the keyword and its nested body as plain maps.
func (k *Keyword) ToMap() map[string]any {
	m := map[string]any{
		"type":         k.Type,
		"status":       k.Status.Status,
		"elapsed_time": k.Status.Elapsed.Seconds(),
	}

	if k.Name != "" {
		m["name"] = k.Name
	}

	if k.Owner != "" {
		m["owner"] = k.Owner
	}

	if len(k.Args) > 0 {
		m["args"] = k.Args
	}

	if len(k.Assign) > 0 {
		m["assign"] = k.Assign
	}

	if len(k.Tags) > 0 {
		m["tags"] = k.Tags
	}

	if k.Doc != "" {
		m["doc"] = k.Doc
	}

	if k.Status.Message != "" {
		m["message"] = k.Status.Message
	}

	addTimes(m, k.Status)

	if len(k.Messages) > 0 {
		msgs := make([]map[string]any, 0, len(k.Messages))
		for _, msg := range k.Messages {
			mm := map[string]any{
				"type":    "MESSAGE",
				"level":   msg.Level,
				"message": msg.Text,
			}

			if ts := FormatTimestamp(msg.Timestamp); ts != "" {
				mm["timestamp"] = ts
			}

			if msg.HTML {
				mm["html"] = true
			}

			msgs = append(msgs, mm)
		}

		m["messages"] = msgs
	}

	if len(k.Body) > 0 {
		m["body"] = keywordMaps(k.Body)
	}

	return m
}

func keywordMaps(kws []*Keyword) []map[string]any {
	out := make([]map[string]any, 0, len(kws))
	for _, kw := range kws {
		out = append(out, kw.ToMap())
	}

	return out
}

func addTimes(m map[string]any, s Status) {
	if ts := FormatTimestamp(s.StartTime); ts != "" {
		m["start_time"] = ts
	}

	if ts := FormatTimestamp(s.EndTime); ts != "" {
		m["end_time"] = ts
	}
}
