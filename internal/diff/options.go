package diff

import "github.com/wonny/carwatch/internal/contracts"

type matchKind int

const (
	matchByCode matchKind = iota
	matchByDescription
)

type optionPair struct {
	cur  contracts.LineItemOption
	prev contracts.LineItemOption
	kind matchKind
}

// matchOptions pairs today's options with yesterday's: first by code, then by
// normalized description. Unpaired current options are added, unpaired
// previous options are removed. Output keeps the current (resp. previous) order.
func matchOptions(current, previous []contracts.LineItemOption) (pairs []optionPair, added, removed []contracts.LineItemOption) {
	used := make([]bool, len(previous))
	matched := make([]int, len(current))
	for i := range matched {
		matched[i] = -1
	}

	// 1차: 코드 일치
	for i, cur := range current {
		if !hasCode(cur) {
			continue
		}
		for j, prev := range previous {
			if !used[j] && prev.Code == cur.Code {
				used[j] = true
				matched[i] = j
				pairs = append(pairs, optionPair{cur: cur, prev: prev, kind: matchByCode})
				break
			}
		}
	}

	// 2차: 설명 일치
	for i, cur := range current {
		if matched[i] >= 0 {
			continue
		}
		desc := contracts.NormalizeText(cur.Description)
		for j, prev := range previous {
			if !used[j] && contracts.NormalizeText(prev.Description) == desc {
				used[j] = true
				matched[i] = j
				pairs = append(pairs, optionPair{cur: cur, prev: prev, kind: matchByDescription})
				break
			}
		}
	}

	for i, cur := range current {
		if matched[i] < 0 {
			added = append(added, cur)
		}
	}
	for j, prev := range previous {
		if !used[j] {
			removed = append(removed, prev)
		}
	}
	return pairs, added, removed
}

func hasCode(o contracts.LineItemOption) bool {
	return o.Code != "" && o.Code != contracts.NotAvailable
}
