package profile

import "github.com/otus-rohc/rohc/pkg/rohc"

// ClassifyIPID determines the IP-ID behavior class from a short history of
// (IP-ID, MSN) observations (§3 Data Model). history must be in increasing
// MSN order; at least two observations are required to distinguish SEQ
// from RAND.
func ClassifyIPID(ipIDs []uint16, msns []uint16) rohc.IPIDBehavior {
	if len(ipIDs) < 2 {
		return rohc.IPIDZero
	}
	allZero := true
	for _, id := range ipIDs {
		if id != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return rohc.IPIDZero
	}

	seqMatches, swapMatches, total := 0, 0, 0
	for i := 1; i < len(ipIDs); i++ {
		msnDelta := int32(msns[i]) - int32(msns[i-1])
		if msnDelta == 0 {
			continue
		}
		total++
		idDelta := int32(ipIDs[i]) - int32(ipIDs[i-1])
		if idDelta == msnDelta {
			seqMatches++
		}
		swapped := swap16(ipIDs[i])
		prevSwapped := swap16(ipIDs[i-1])
		if int32(swapped)-int32(prevSwapped) == msnDelta {
			swapMatches++
		}
	}
	if total == 0 {
		return rohc.IPIDRandom
	}
	switch {
	case seqMatches == total:
		return rohc.IPIDSeq
	case swapMatches == total:
		return rohc.IPIDSeqSwap
	default:
		return rohc.IPIDRandom
	}
}

func swap16(v uint16) uint16 { return v<<8 | v>>8 }
