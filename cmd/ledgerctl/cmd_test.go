package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite/sqlitetest"
	"github.com/jhoicas/bar-ledger/pkg/jwt"
)

func TestRunVerify_TodoConsistente(t *testing.T) {
	ctx := context.Background()
	runner := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	svc := ledger.NewService(runner, nil, nil, zerolog.Nop())
	p, err := svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "Ron", TotalCapacity: 70, InitialRemaining: 70}, nil)
	require.NoError(t, err)
	for _, v := range []float64{50, 70, 5} {
		_, err := svc.ApplyChange(ctx, ledger.ChangeInput{ProductID: p.ID, Remaining: v})
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, runVerify(ctx, ledger.NewQueryService(runner, nil), "", &out))
	assert.Contains(t, out.String(), "1 productos verificados, 0 inconsistentes")

	out.Reset()
	require.NoError(t, runVerify(ctx, ledger.NewQueryService(runner, nil), p.ID, &out))
	assert.Contains(t, out.String(), p.ID)
}

func TestRunVerify_ProductoInexistente(t *testing.T) {
	runner := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	err := runVerify(context.Background(), ledger.NewQueryService(runner, nil), "00000000-0000-0000-0000-00000000dead", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestPrintReports_MarcaInconsistentes(t *testing.T) {
	var out bytes.Buffer
	bad := printReports(&out, []*ledger.VerifyReport{
		{ProductID: "a", Name: "Ron", Consistent: true},
		{ProductID: "b", Name: "Gin", Consistent: false, BrokenAt: "e1"},
	})
	assert.Equal(t, 1, bad)
	assert.Contains(t, out.String(), "INCONSISTENTE (cadena rota en e1)")
}

func TestTokenCmd_RechazaRolDesconocido(t *testing.T) {
	tokenUser = "00000000-0000-0000-0000-000000000001"
	tokenRole = "cliente"
	t.Cleanup(func() { tokenUser, tokenRole = "", jwt.RoleStaff })
	err := tokenCmd.RunE(tokenCmd, nil)
	assert.Error(t, err)
}

func TestTokenCmd_EmiteTokenValido(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-de-prueba")
	tokenUser = "00000000-0000-0000-0000-000000000001"
	tokenRole = jwt.RoleAdmin
	t.Cleanup(func() { tokenUser, tokenRole = "", jwt.RoleStaff })

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	require.NoError(t, tokenCmd.RunE(tokenCmd, nil))

	user, role, err := jwt.Parse("secret-de-prueba", string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, tokenUser, user)
	assert.Equal(t, jwt.RoleAdmin, role)
}

func TestTokenCmd_AceptaIdentificadorOpaco(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-de-prueba")
	tokenUser = "1"
	tokenRole = jwt.RoleStaff
	t.Cleanup(func() { tokenUser, tokenRole = "", jwt.RoleStaff })

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	require.NoError(t, tokenCmd.RunE(tokenCmd, nil))

	user, _, err := jwt.Parse("secret-de-prueba", string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "1", user)
}

func TestTokenCmd_RechazaUsuarioVacio(t *testing.T) {
	tokenUser = "  "
	t.Cleanup(func() { tokenUser, tokenRole = "", jwt.RoleStaff })
	assert.Error(t, tokenCmd.RunE(tokenCmd, nil))
}
