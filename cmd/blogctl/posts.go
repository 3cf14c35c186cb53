package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogsync"
)

func feedCmd() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			posts, err := client.PublicPosts(ctx)
			if err != nil {
				return err
			}

			pager := blogsync.NewPaginator(posts, page, pageSize)
			if !pager.HasPosts {
				fmt.Println("No posts")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE\tCATEGORY\tAUTHOR\tLIKES\tPUBLISHED")
			for _, p := range pager.Posts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Slug,
					p.Title,
					p.Category.Label(),
					p.AuthorName(),
					likeColumn(p),
					p.CreatedAt.Format("2006-01-02"),
				)
			}
			w.Flush()

			if pager.TotalPages > 1 {
				fmt.Printf("\nPage %d of %d (%d posts)\n",
					pager.CurrentPage, pager.TotalPages, pager.TotalPosts)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", blogsync.DefaultPageSize, "Posts per page")
	return cmd
}

func showCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var post *blogsync.Post
			if offline {
				post, err = client.OfflinePost(ctx, args[0])
			} else {
				post, err = client.PostBySlug(ctx, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", post.Title)
			fmt.Printf("%s\n\n", post.Description)
			fmt.Printf("  Category: %s\n", post.Category.Label())
			if name := post.AuthorName(); name != "" {
				fmt.Printf("  Author:   %s\n", name)
			}
			fmt.Printf("  Likes:    %s\n", likeColumn(post))
			fmt.Printf("  Comments: %d\n", post.Counts.Comments)
			fmt.Printf("  Published: %s\n\n", post.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Println(strings.TrimSpace(post.Content.Markdown()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Read from the local archive instead of the network")
	return cmd
}

func likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <slug>",
		Short: "Toggle your like on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !client.Session().Authenticated() {
				return fmt.Errorf("not signed in; run 'blogctl login' first")
			}

			// The post must be cached before its like can toggle.
			if _, err := client.PostBySlug(ctx, args[0]); err != nil {
				return err
			}

			if err := client.ToggleLike(ctx, args[0]); err != nil {
				return err
			}

			post, err := client.PostBySlug(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", post.Slug, likeColumn(post))
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the offline post archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			filter := blogsync.ArchiveFilter{Limit: limit}
			if len(args) > 0 {
				filter.Search = args[0]
			}
			if category != "" {
				filter.Category = blogsync.Category(strings.ToUpper(category))
				if !filter.Category.Valid() {
					return fmt.Errorf("invalid category: %s", category)
				}
			}

			posts, err := client.SearchOffline(ctx, filter)
			if err != nil {
				return err
			}

			if len(posts) == 0 {
				fmt.Println("No matches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE\tCATEGORY")
			for _, p := range posts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Slug, p.Title, p.Category.Label())
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to one category")
	cmd.Flags().IntVarP(&limit, "limit", "n", blogsync.DefaultArchiveLimit, "Maximum results")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the feed, refreshing on new-post notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			printFeed := func() {
				posts, err := client.PublicPosts(ctx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to refresh feed: %v\n", err)
					return
				}
				fmt.Printf("--- %d posts ---\n", len(posts))
				for _, p := range posts {
					fmt.Printf("%s  %s\n", p.Slug, p.Title)
				}
			}

			unsubscribe := client.Subscribe(blogsync.KeyPublicPosts(), printFeed)
			defer unsubscribe()

			printFeed()

			if err := client.Watch(ctx); err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, "Watching for new posts (Ctrl+C to stop)...")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
}

func likeColumn(p *blogsync.Post) string {
	mark := ""
	if p.LikedByMe {
		mark = " (you)"
	}
	return fmt.Sprintf("%d%s", p.Counts.LikedBy, mark)
}
