package export

import (
	"bytes"

	ogorek "github.com/kisielk/og-rek"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// pickleProtocol 2 stores floats as raw IEEE 754 bits, so NaN and Inf
// payloads survive unchanged
const pickleProtocol = 2

func encodePickle(series *signal.Series) ([]byte, error) {
	dict := map[string]any{
		"fs":      series.FS,
		"samples": series.Samples,
		"tstamps": series.Tstamps,
	}

	var buf bytes.Buffer
	enc := ogorek.NewEncoderWithConfig(&buf, &ogorek.EncoderConfig{Protocol: pickleProtocol})
	if err := enc.Encode(dict); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
