package engine

// variableSet remembers the engine variables last applied to a backend.
type variableSet map[string]string

// update records key=value and reports whether it differs from the value
// already applied.
func (v variableSet) update(key, value string) bool {
	if old, ok := v[key]; ok && old == value {
		return false
	}
	v[key] = value
	return true
}
