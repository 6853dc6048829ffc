package settlements

import (
	"strconv"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
)

type valueKind int

const (
	kindInt valueKind = iota
	kindString
)

// column is one survivor table column. key doubles as the order_by path,
// the filter identifier and the form field name.
type column struct {
	key    string
	label  string
	kind   valueKind
	hidden bool
	value  func(backend.Survivor) any
}

func intColumn(key, label string, hidden bool, value func(backend.Survivor) int) column {
	return column{key: key, label: label, kind: kindInt, hidden: hidden, value: func(s backend.Survivor) any { return int64(value(s)) }}
}

func stringColumn(key, label string, hidden bool, value func(backend.Survivor) string) column {
	return column{key: key, label: label, kind: kindString, hidden: hidden, value: func(s backend.Survivor) any { return value(s) }}
}

var survivorColumns = []column{
	stringColumn("name", "web.survivor.name", false, func(s backend.Survivor) string { return s.Name }),
	intColumn("born", "web.survivor.born", true, func(s backend.Survivor) int { return s.Born }),
	stringColumn("gender", "web.survivor.gender", false, func(s backend.Survivor) string { return s.Gender }),
	stringColumn("status", "web.survivor.status", true, func(s backend.Survivor) string { return string(s.Status) }),
	intColumn("hunt_xp", "web.survivor.hunt_xp", false, func(s backend.Survivor) int { return s.HuntXP }),
	intColumn("survival", "web.survivor.survival", true, func(s backend.Survivor) int { return s.Survival }),
	intColumn("movement", "web.survivor.movement", false, func(s backend.Survivor) int { return s.Movement }),
	intColumn("accuracy", "web.survivor.accuracy", false, func(s backend.Survivor) int { return s.Accuracy }),
	intColumn("strength", "web.survivor.strength", false, func(s backend.Survivor) int { return s.Strength }),
	intColumn("evasion", "web.survivor.evasion", false, func(s backend.Survivor) int { return s.Evasion }),
	intColumn("luck", "web.survivor.luck", false, func(s backend.Survivor) int { return s.Luck }),
	intColumn("speed", "web.survivor.speed", false, func(s backend.Survivor) int { return s.Speed }),
	intColumn("insanity", "web.survivor.insanity", true, func(s backend.Survivor) int { return s.Insanity }),
	intColumn("systemic_pressure", "web.survivor.systemic_pressure", true, func(s backend.Survivor) int { return s.SystemicPressure }),
	intColumn("torment", "web.survivor.torment", true, func(s backend.Survivor) int { return s.Torment }),
	intColumn("lumi", "web.survivor.lumi", true, func(s backend.Survivor) int { return s.Lumi }),
	intColumn("courage", "web.survivor.courage", true, func(s backend.Survivor) int { return s.Courage }),
	intColumn("understanding", "web.survivor.understanding", true, func(s backend.Survivor) int { return s.Understanding }),
}

var columnsByKey = func() map[string]column {
	out := make(map[string]column, len(survivorColumns))
	for _, c := range survivorColumns {
		out[c.key] = c
	}
	return out
}()

func columnKeys() []string {
	keys := make([]string, 0, len(survivorColumns))
	for _, c := range survivorColumns {
		keys = append(keys, c.key)
	}
	return keys
}

func defaultVisible() []string {
	keys := make([]string, 0, len(survivorColumns))
	for _, c := range survivorColumns {
		if !c.hidden {
			keys = append(keys, c.key)
		}
	}
	return keys
}

func (c column) display(s backend.Survivor) string {
	switch v := c.value(s).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return ""
	}
}
