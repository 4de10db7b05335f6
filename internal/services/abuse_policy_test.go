package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/services"
)

func fullPolicyMap() map[models.AbuseContext]services.AbusePolicy {
	policies := make(map[models.AbuseContext]services.AbusePolicy, len(models.AllAbuseContexts))
	for _, c := range models.AllAbuseContexts {
		policies[c] = services.AbusePolicy{
			Window:           time.Hour,
			FailureThreshold: 10,
			BanDuration:      time.Hour,
		}
	}
	return policies
}

func TestNewPolicyTable_Valid(t *testing.T) {
	table, err := services.NewPolicyTable(fullPolicyMap())
	require.NoError(t, err)

	p, err := table.Policy(models.ContextAuthLogin)
	require.NoError(t, err)
	assert.Equal(t, 10, p.FailureThreshold)
}

func TestNewPolicyTable_MissingContext(t *testing.T) {
	policies := fullPolicyMap()
	delete(policies, models.ContextCallJoin)

	_, err := services.NewPolicyTable(policies)
	assert.ErrorContains(t, err, "missing entry")
	assert.ErrorContains(t, err, string(models.ContextCallJoin))
}

func TestNewPolicyTable_UnknownContext(t *testing.T) {
	policies := fullPolicyMap()
	policies[models.AbuseContext("password_reset")] = services.AbusePolicy{
		Window:           time.Hour,
		FailureThreshold: 5,
		BanDuration:      time.Hour,
	}

	_, err := services.NewPolicyTable(policies)
	assert.ErrorContains(t, err, "unknown context")
}

func TestNewPolicyTable_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *services.AbusePolicy)
	}{
		{"zero window", func(p *services.AbusePolicy) { p.Window = 0 }},
		{"negative threshold", func(p *services.AbusePolicy) { p.FailureThreshold = -1 }},
		{"zero ban duration", func(p *services.AbusePolicy) { p.BanDuration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policies := fullPolicyMap()
			p := policies[models.ContextSetup]
			tt.mutate(&p)
			policies[models.ContextSetup] = p

			_, err := services.NewPolicyTable(policies)
			assert.ErrorContains(t, err, "invalid entry")
		})
	}
}

func TestPolicyTable_UnknownLookup(t *testing.T) {
	table, err := services.NewPolicyTable(fullPolicyMap())
	require.NoError(t, err)

	_, err = table.Policy(models.AbuseContext("mfa_verify"))
	assert.ErrorIs(t, err, models.ErrUnknownContext)
}
