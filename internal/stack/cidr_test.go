package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPartition(t *testing.T) {
	tests := []struct {
		name    string
		network string
		subnets []string
		wantErr string
	}{
		{
			name:    "three disjoint /24s",
			network: "10.0.0.0/16",
			subnets: []string{"10.0.0.0/24", "10.0.1.0/24", "10.0.2.0/24"},
		},
		{
			name:    "unmasked input normalized",
			network: "10.0.0.0/16",
			subnets: []string{"10.0.1.5/24"},
		},
		{
			name:    "subnet outside block",
			network: "10.0.0.0/16",
			subnets: []string{"10.1.0.0/24"},
			wantErr: "not contained",
		},
		{
			name:    "subnet larger than block",
			network: "10.0.0.0/16",
			subnets: []string{"10.0.0.0/8"},
			wantErr: "not contained",
		},
		{
			name:    "overlapping subnets",
			network: "10.0.0.0/16",
			subnets: []string{"10.0.0.0/23", "10.0.1.0/24"},
			wantErr: "overlap",
		},
		{
			name:    "bad network cidr",
			network: "10.0.0.0",
			subnets: []string{"10.0.0.0/24"},
			wantErr: "invalid CIDR",
		},
		{
			name:    "bad subnet cidr",
			network: "10.0.0.0/16",
			subnets: []string{"10.0.0.0/24", "bogus"},
			wantErr: "invalid CIDR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPartition(tt.network, tt.subnets)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
