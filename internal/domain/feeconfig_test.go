package domain

import "testing"

func TestPlatformFeeFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		cfg   FeeConfig
		gross int64
		want  int64
	}{
		{
			name:  "zero rates",
			cfg:   FeeConfig{},
			gross: 10000,
			want:  0,
		},
		{
			name:  "rate plus fixed, truncated",
			cfg:   FeeConfig{PlatformRate: 0.05, PlatformFixedFee: 30},
			gross: 9999,
			want:  529, // floor(499.95) + 30
		},
		{
			name:  "clamped to minimum",
			cfg:   FeeConfig{PlatformRate: 0.01, PlatformMinFee: 200},
			gross: 10000,
			want:  200,
		},
		{
			name:  "clamped to maximum",
			cfg:   FeeConfig{PlatformRate: 0.10, PlatformMaxFee: 500},
			gross: 100000,
			want:  500,
		},
		{
			name:  "zero max means unbounded",
			cfg:   FeeConfig{PlatformRate: 0.10},
			gross: 100000,
			want:  10000,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.PlatformFeeFor(tc.gross); got != tc.want {
				t.Fatalf("PlatformFeeFor(%d) = %d, want %d", tc.gross, got, tc.want)
			}
		})
	}
}
