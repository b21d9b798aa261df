package radio

import (
	"github.com/robotalks/phoenix.go/pkg/bits"
	"github.com/robotalks/phoenix.go/pkg/hamming"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

// Report collects the per block decode results of Unframe.
type Report [Blocks]hamming.Result

// Corrected returns the number of blocks with a corrected bit.
func (r Report) Corrected() int {
	n := 0
	for _, res := range r {
		if res.Status == hamming.CorrectedSingleBit {
			n++
		}
	}
	return n
}

// Positions returns the message bit offsets of all corrected bits.
func (r Report) Positions() []int {
	var pos []int
	for i, res := range r {
		if res.Status == hamming.CorrectedSingleBit {
			pos = append(pos, i*hamming.CodewordBits+res.Position)
		}
	}
	return pos
}

// Frame encodes r into a Message. The record is serialized, padded with
// zeros to a multiple of 11 bits and every 11-bit group becomes a codeword.
func Frame(r remoteid.Record) Message {
	payload := bits.New(PayloadBits)
	// Serialize always yields RecordBits, which fits with the padding.
	payload.Append(remoteid.Serialize(r))
	payload.PushUint(0, PaddingBits)

	var m Message
	for i := range m {
		m[i] = hamming.Encode(hamming.Data(payload.Uint(i*hamming.DataBits, hamming.DataBits)))
	}
	return m
}

// Unframe decodes a Message. Single bit errors are corrected per block and
// recorded in the Report. The first uncorrectable block aborts with
// UnrecoverableChannelError, bits which don't make a valid record give
// InvalidRecordError.
func Unframe(m Message) (remoteid.Record, Report, error) {
	var report Report
	payload := bits.New(PayloadBits)
	for i, c := range m {
		d, res := hamming.Decode(c)
		report[i] = res
		if res.Status == hamming.UncorrectableMultiBit {
			return remoteid.Record{}, report, &UnrecoverableChannelError{BlockIndex: i}
		}
		payload.PushUint(uint64(d), hamming.DataBits)
	}
	r, err := remoteid.Deserialize(payload.Slice(0, remoteid.RecordBits))
	if err != nil {
		return remoteid.Record{}, report, &InvalidRecordError{Err: err}
	}
	return r, report, nil
}
