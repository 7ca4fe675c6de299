package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Dosada05/carnival-system/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFeed(t *testing.T) {
	records, err := readFeed(strings.NewReader(`[
		{"external_id": "ext-1", "title": "Country Cup", "date": "2026-03-01T00:00:00Z", "state": "NSW",
		 "contact_email": "organiser@example.org"},
		{"external_id": "ext-2", "title": "Coastal Nines", "date": "2026-04-12T00:00:00Z"}
	]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ext-1", records[0].ExternalID)
	require.NotNil(t, records[0].State)
	assert.Equal(t, "NSW", *records[0].State)
	assert.Nil(t, records[1].ContactEmail)
}

func TestReadFeedRejectsUnknownFields(t *testing.T) {
	_, err := readFeed(strings.NewReader(`[{"external_id": "x", "owner_user_id": 4}]`))
	require.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "admin-claim", "recalc-fees", "recount", "import", "hash-password"}, names)
}

func TestAdminClaimRequiresFlags(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"admin-claim", "--carnival", "1"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestHashPasswordReadsStdin(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("hunter2\n"))
	root.SetArgs([]string{"hash-password"})
	require.NoError(t, root.Execute())

	ok, err := utils.CheckPasswordHash("hunter2", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{"hash-password"})
	assert.ErrorIs(t, root.Execute(), utils.ErrEmptyPassword)
}
