package core

import (
	"strings"
	"unicode/utf8"
)

// minLearnedWordLen filters noise words ("a", "at", "of") out of the
// learned co-occurrence table. Lookup of a new description is not
// filtered, so short words still match nothing and fall through.
const minLearnedWordLen = 3

// keywordRules is the fixed fallback table, checked in order when the
// household history gives no signal. First match wins.
var keywordRules = []struct {
	words    []string
	category string
}{
	{[]string{"walmart", "grocery", "food"}, "Groceries"},
	{[]string{"restaurant", "cafe", "pizza"}, "Restaurants"},
	{[]string{"uber", "gas", "fuel"}, "Transportation"},
	{[]string{"electric", "water", "internet"}, "Utilities"},
	{[]string{"movie", "netflix", "game"}, "Entertainment"},
	{[]string{"cigarette", "smoke", "tobacco"}, "Cigarettes"},
}

type categoryCount struct {
	category string
	count    int
}

// SuggestCategory proposes the most likely category for a new expense
// description given the household's past expenses.
//
// It counts, per word of the historical descriptions (lowercased,
// whitespace-split, words of three or more characters), how often each
// category co-occurred with that word. The words of the new description
// then vote with those counts; the category with the highest total
// wins. Ties go to the category encountered first during accumulation,
// so results are deterministic for a fixed history order. With no
// historical overlap the fixed keyword table applies, and failing that
// the answer is "Other".
func SuggestCategory(description string, history []Expense) string {
	table := make(map[string][]categoryCount)
	for _, e := range history {
		for _, word := range strings.Fields(strings.ToLower(e.Description)) {
			if utf8.RuneCountInString(word) < minLearnedWordLen {
				continue
			}
			counts := table[word]
			found := false
			for i := range counts {
				if counts[i].category == e.Category {
					counts[i].count++
					found = true
					break
				}
			}
			if !found {
				counts = append(counts, categoryCount{category: e.Category, count: 1})
			}
			table[word] = counts
		}
	}

	// Accumulate votes in first-encountered order so that ties resolve
	// the same way on every call.
	scores := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(strings.ToLower(description)) {
		for _, cc := range table[word] {
			if _, seen := scores[cc.category]; !seen {
				order = append(order, cc.category)
			}
			scores[cc.category] += cc.count
		}
	}

	best := ""
	bestScore := 0
	for _, category := range order {
		if scores[category] > bestScore {
			best = category
			bestScore = scores[category]
		}
	}
	if best != "" {
		return best
	}

	return keywordCategory(strings.ToLower(description))
}

func keywordCategory(desc string) string {
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(desc, w) {
				return rule.category
			}
		}
	}
	return "Other"
}
