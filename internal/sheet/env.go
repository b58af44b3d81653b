package sheet

// Env is the expression environment a roster filter runs against, one
// sheet at a time. Filter expressions look like:
//
//	Kind("npc") && Tagged("party")
//	Name("Brianna", "Tasha")
type Env struct {
	Sheet *Sheet
}

func (e Env) All() bool {
	return true
}

func (e Env) None() bool {
	return false
}

func (e Env) Kind(vals ...string) bool {
	if len(vals) == 0 {
		return true
	}
	for _, val := range vals {
		if val == e.Sheet.Kind {
			return true
		}
	}
	return false
}

func (e Env) Name(vals ...string) bool {
	if len(vals) == 0 {
		return true
	}
	for _, val := range vals {
		if val == e.Sheet.Name {
			return true
		}
	}
	return false
}

func (e Env) UID(vals ...string) bool {
	if len(vals) == 0 {
		return true
	}
	for _, val := range vals {
		if val == e.Sheet.UID {
			return true
		}
	}
	return false
}

// Tagged reports whether the sheet carries every given tag.
func (e Env) Tagged(tags ...string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		found := false
		for _, have := range e.Sheet.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
