package main

import (
	"fmt"
	"strings"

	"github.com/jhoicas/bar-ledger/pkg/config"
	"github.com/jhoicas/bar-ledger/pkg/jwt"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenRole string
)

// ledgerctl token --user <id> --role admin|staff
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT de desarrollo firmado con JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(tokenUser) == "" {
			return fmt.Errorf("--user no puede estar vacío")
		}
		if tokenRole != jwt.RoleAdmin && tokenRole != jwt.RoleStaff {
			return fmt.Errorf("--role debe ser %s o %s", jwt.RoleAdmin, jwt.RoleStaff)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenRole, cfg.JWT.Issuer, cfg.JWT.Expiration)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "Identificador del usuario")
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleStaff, "admin | staff")
	_ = tokenCmd.MarkFlagRequired("user")
}
