package selection

import "github.com/japaniel/textselect/pkg/corpus"

// Primary scores utt against the units still wanted, each occurrence
// weighted by the inverse of the unit's reference frequency. Units with no
// positive reference frequency contribute nothing.
func Primary(utt *corpus.Utterance, wanted map[string]struct{}, reference map[string]int) float64 {
	var score float64
	for _, unit := range utt.Units {
		if _, ok := wanted[unit]; !ok {
			continue
		}
		ref := reference[unit]
		if ref <= 0 {
			continue
		}
		score += float64(utt.Freqs[unit]) / float64(ref)
	}
	return score
}

// Secondary favours utterances whose units are still scarce in the selected
// corpus. Only units the selected corpus has already counted take part, and
// a unit whose running count is not positive is skipped.
//
// Both scores sum in sorted unit order so equal inputs give bit-identical
// results and ties are detected reliably.
func Secondary(utt *corpus.Utterance, selected *corpus.Store) float64 {
	var score float64
	for _, unit := range utt.Units {
		have, ok := selected.UnselectedFreq(unit)
		if !ok || have <= 0 {
			continue
		}
		score += float64(utt.Freqs[unit]) / float64(have)
	}
	return score
}
