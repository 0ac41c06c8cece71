package intake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint("Guidance_for_Importers", "https://example.org/docs/guide.pdf")
	b := Fingerprint("Guidance_for_Importers", "https://example.org/docs/guide.pdf")
	require.Equal(t, a, b)
	require.Len(t, a, 32)
	require.Regexp(t, "^[0-9a-f]{32}$", a)
}

func TestFingerprintSensitivity(t *testing.T) {
	t.Parallel()

	base := Fingerprint("Guidance_for_Importers", "https://example.org/docs/guide.pdf")
	require.NotEqual(t, base, Fingerprint("Guidance_for_Exporters", "https://example.org/docs/guide.pdf"))
	require.NotEqual(t, base, Fingerprint("Guidance_for_Importers", "https://example.org/docs/guide2.pdf"))
}
