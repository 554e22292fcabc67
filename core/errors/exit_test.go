package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCodesAreUnique(t *testing.T) {
	seen := make(map[int32]string)
	for _, e := range all {
		prev, dup := seen[e.Code]
		require.Falsef(t, dup, "code %d shared by %q and %q", e.Code, prev, e.Name)
		seen[e.Code] = e.Name
	}
	require.Len(t, Table(), len(all))
}

func TestExitCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("campaign 7: %w", ErrAffiliateNotActive)
	require.Equal(t, int32(2004), ExitCode(wrapped))
	require.Equal(t, int32(0), ExitCode(nil))
	require.Equal(t, ExitCodeUnknown, ExitCode(fmt.Errorf("boom")))
}
