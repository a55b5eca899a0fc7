package protocol

// maxZeroRun is the longest run a single [0x00, n] pair can describe.
const maxZeroRun = 255

// ZeroEncode compresses runs of zero bytes. A run of n zeros (1..255) becomes
// the pair [0x00, n]; longer runs are split across several pairs. Non-zero
// bytes pass through unchanged.
func ZeroEncode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	run := 0
	for _, b := range data {
		if b == 0 {
			run++
			if run == maxZeroRun {
				out = append(out, 0x00, maxZeroRun)
				run = 0
			}
			continue
		}
		if run > 0 {
			out = append(out, 0x00, byte(run))
			run = 0
		}
		out = append(out, b)
	}
	if run > 0 {
		out = append(out, 0x00, byte(run))
	}
	return out
}

// ZeroDecode expands [0x00, n] pairs back into n zeros. A trailing zero with
// no count byte, or a zero count, is a codec error.
func ZeroDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != 0 {
			out = append(out, b)
			continue
		}
		if i+1 >= len(data) {
			return nil, NewError(KindCodec, "zero run at offset %d has no count byte", i)
		}
		i++
		n := int(data[i])
		if n == 0 {
			return nil, NewError(KindCodec, "zero run at offset %d has zero count", i-1)
		}
		for ; n > 0; n-- {
			out = append(out, 0x00)
		}
	}
	return out, nil
}
