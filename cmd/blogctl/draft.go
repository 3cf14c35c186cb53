package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogsync"
)

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Work on the in-progress post",
	}

	cmd.AddCommand(
		draftEditCmd(),
		draftShowCmd(),
		draftImportCmd(),
		draftExportCmd(),
		draftResetCmd(),
	)

	return cmd
}

func draftEditCmd() *cobra.Command {
	var (
		title       string
		description string
		category    string
		contentFile string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Set draft fields, creating the draft when none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := requireSignedIn(client, "/posts/create"); err != nil {
				return err
			}

			w, err := blogsync.NewWizard(ctx, client)
			if err != nil {
				return err
			}

			d := w.Draft()
			if cmd.Flags().Changed("title") {
				d.Title = title
			}
			if cmd.Flags().Changed("description") {
				d.Description = description
			}
			if cmd.Flags().Changed("category") {
				d.Category = blogsync.Category(strings.ToUpper(category))
				if !d.Category.Valid() {
					return fmt.Errorf("invalid category: %s (valid: %v)", category, blogsync.Categories())
				}
			}
			if cmd.Flags().Changed("content") {
				body, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("failed to read content file: %w", err)
				}
				d.Content = string(body)
			}

			if err := w.SetDraft(ctx, d); err != nil {
				return err
			}

			// Saving never requires validity; report outstanding problems.
			if fe := d.Check(); len(fe) > 0 {
				fmt.Printf("Draft saved; not yet publishable: %s\n", fe.Error())
				return nil
			}
			fmt.Printf("Draft saved (slug preview: %s)\n", d.SlugPreview())
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Post title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Post description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Post category")
	cmd.Flags().StringVar(&contentFile, "content", "", "Markdown file with the post body")

	return cmd
}

func draftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			d, err := client.Store().LoadDraft(ctx)
			if err != nil {
				if errors.Is(err, blogsync.ErrDraftNotFound) {
					fmt.Println("No draft")
					return nil
				}
				return err
			}

			fmt.Printf("Title:       %s\n", d.Title)
			fmt.Printf("Description: %s\n", d.Description)
			fmt.Printf("Category:    %s\n", d.Category.Label())
			if d.CardType != "" {
				fmt.Printf("Card type:   %s\n", d.CardType)
			}
			if !d.Updated.IsZero() {
				fmt.Printf("Updated:     %s\n", d.Updated.Format("2006-01-02 15:04"))
			}
			fmt.Printf("Slug:        %s\n\n", d.SlugPreview())
			fmt.Println(d.Content)
			return nil
		},
	}
}

func draftImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the draft with a markdown file (YAML or TOML frontmatter)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read draft file: %w", err)
			}

			d, err := blogsync.DecodeDraftMarkdown(src)
			if err != nil {
				return err
			}

			w, err := blogsync.NewWizard(ctx, client)
			if err != nil {
				return err
			}
			if err := w.SetDraft(ctx, *d); err != nil {
				return err
			}

			fmt.Printf("Draft imported from %s\n", args[0])
			return nil
		},
	}
}

func draftExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the draft as a markdown file with frontmatter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			d, err := client.Store().LoadDraft(ctx)
			if err != nil {
				return err
			}

			data, err := d.EncodeMarkdown(blogsync.FrontmatterFormat(format))
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write draft file: %w", err)
			}
			fmt.Printf("Draft exported to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Frontmatter format (yaml, toml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file ('-' for stdout)")
	return cmd
}

func draftResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := client.Store().DeleteDraft(ctx); err != nil {
				return err
			}

			fmt.Println("Draft discarded")
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	var cardType string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the draft",
		Long:  "Validates the draft, records the card type, and publishes. The draft is kept when publishing fails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := requireSignedIn(client, "/posts/create"); err != nil {
				return err
			}

			w, err := blogsync.NewWizard(ctx, client)
			if err != nil {
				return err
			}

			d := w.Draft()
			if err := w.Next(); err != nil {
				return err
			}

			t := d.CardType
			if cardType != "" {
				t = blogsync.CardType(strings.ToUpper(cardType))
			}
			if err := w.SelectCardType(ctx, t); err != nil {
				if errors.Is(err, blogsync.ErrNoCardType) || t == "" {
					return fmt.Errorf("pick a card type with --card-type (valid: %v)", blogsync.CardTypes())
				}
				return err
			}

			if err := w.Publish(ctx); err != nil {
				return err
			}

			fmt.Printf("Published %q\n", d.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&cardType, "card-type", "", "Card layout (TOP_RIGHT, TOP_LEFT, BOTTOM_RIGHT, BOTTOM_LEFT)")
	return cmd
}
