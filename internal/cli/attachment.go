package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func newAttachmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachment",
		Short: "Register and inspect attachment metadata",
	}
	cmd.AddCommand(newAttachmentAddCmd(), newAttachmentShowCmd())
	return cmd
}

func newAttachmentAddCmd() *cobra.Command {
	var a types.Attachment
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an attachment and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Name = args[0]
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				out, err := e.RegisterAttachment(ctx, &a)
				if err != nil {
					return err
				}
				return printResult(cmd, out, func() {
					fmt.Fprintln(cmd.OutOrStdout(), out.AttachmentID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&a.ContentType, "content-type", "", "MIME type of the content")
	cmd.Flags().StringVar(&a.Kind, "kind", "", "image, video, audio or document (default: from content type)")
	cmd.Flags().Int64Var(&a.Size, "size", 0, "size in bytes")
	return cmd
}

func newAttachmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <attachment-id>",
		Short: "Show attachment metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				a, err := e.GetAttachment(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, a, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %d bytes)\n", a.AttachmentID, a.Name, a.Kind, a.Size)
				})
			})
		},
	}
}
