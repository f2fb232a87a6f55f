package detector

import "amdscan/pkg/model"

// FindRange tests the accumulation condition at curIdx: the highest high
// and lowest low over the lookback bars preceding curIdx (the current bar
// itself is excluded) must span no more than atr*accumulationMult.
// On success the returned range is the raw extremes expanded outward by
// atr*expandMult, spanning [curIdx-lookback, curIdx-1].
func FindRange(bars []model.Bar, curIdx, lookback int, atr, accumulationMult, expandMult float64) (model.Range, bool) {
	if curIdx < lookback {
		return model.Range{}, false
	}

	hh := bars[curIdx-lookback].High
	ll := bars[curIdx-lookback].Low
	for i := curIdx - lookback + 1; i < curIdx; i++ {
		if bars[i].High > hh {
			hh = bars[i].High
		}
		if bars[i].Low < ll {
			ll = bars[i].Low
		}
	}

	if hh-ll > atr*accumulationMult {
		return model.Range{}, false
	}

	return model.Range{
		Top:        hh + atr*expandMult,
		Bottom:     ll - atr*expandMult,
		StartIndex: curIdx - lookback,
		EndIndex:   curIdx - 1,
	}, true
}
