package main

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadline/lead-import-api/internal/app/imports"
	"github.com/leadline/lead-import-api/internal/domain"
)

var errFindings = errors.New("duplicate issues found")

func newPreviewCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Print parsed rows and duplicate issues as JSON; exits 2 when issues exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := newService(root, nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			up, closeFile, err := openUpload(args[0])
			if err != nil {
				return err
			}
			defer closeFile()

			res, err := svc.Preview(cmd.Context(), domain.SubjectID("cli"), up)
			if err != nil {
				return serviceError(err)
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.HasIssues() {
				return withCode(exitFindings, fmt.Errorf("%w: %d", errFindings, len(res.DuplicateIssues)))
			}
			return nil
		},
	}
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	var (
		owner string
		store storeOptions
	)
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Import a spreadsheet into the lead store when it has no duplicate issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := store.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			svc, log, err := newService(root, repo)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			up, closeFile, err := openUpload(args[0])
			if err != nil {
				return err
			}
			defer closeFile()

			preview, res, err := svc.Import(cmd.Context(), domain.SubjectID(owner), up)
			if err != nil {
				var ae *imports.Error
				if errors.As(err, &ae) && ae.Code == "DUPLICATE_ISSUES" {
					_ = writeJSON(cmd.OutOrStdout(), preview.DuplicateIssues)
					return withCode(exitFindings, fmt.Errorf("%w: %d, nothing imported", errFindings, len(preview.DuplicateIssues)))
				}
				return serviceError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows: %d created, %d updated\n", len(preview.ParsedRows), res.Created, res.Updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Subject that owns the imported leads (required)")
	_ = cmd.MarkFlagRequired("owner")
	store.bind(cmd)
	return cmd
}

func newLeadsCmd(root *rootOptions) *cobra.Command {
	var (
		owner string
		store storeOptions
	)
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List stored leads for an owner as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := store.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			svc, log, err := newService(root, repo)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ls, err := svc.ListLeads(cmd.Context(), domain.SubjectID(owner))
			if err != nil {
				return eris.Wrap(err, "list leads")
			}
			return writeJSON(cmd.OutOrStdout(), ls)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Subject that owns the leads (required)")
	_ = cmd.MarkFlagRequired("owner")
	store.bind(cmd)
	return cmd
}

// serviceError keeps app errors readable and maps input problems to the usage exit code.
func serviceError(err error) error {
	var ae *imports.Error
	if errors.As(err, &ae) {
		code := exitFailure
		if ae.Status == 413 || ae.Status == 415 || ae.Status == 422 {
			code = exitUsage
		}
		return withCode(code, fmt.Errorf("%s: %s", ae.Code, ae.Message))
	}
	return err
}
