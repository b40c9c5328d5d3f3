package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	worksCmd := &cobra.Command{Use: "works", Short: "Work operations"}

	var bodyFlag string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := decodeBody(bodyFlag)
			if err != nil {
				return err
			}
			out, err := newClient().CreateWork(context.Background(), body)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	createCmd.Flags().StringVarP(&bodyFlag, "body", "b", "", "work document as JSON")
	worksCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get WORK_ID",
		Short: "Get a work by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().GetWork(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	worksCmd.AddCommand(getCmd)

	var updateBody string
	var updateVersion int64
	updateCmd := &cobra.Command{
		Use:   "update WORK_ID",
		Short: "Update work fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := decodeBody(updateBody)
			if err != nil {
				return err
			}
			var version *int64
			if cmd.Flags().Changed("version") {
				version = &updateVersion
			}
			out, err := newClient().UpdateWork(context.Background(), args[0], version, body)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	updateCmd.Flags().StringVarP(&updateBody, "body", "b", "", "field changes as JSON")
	updateCmd.Flags().Int64Var(&updateVersion, "version", 0, "expected version")
	worksCmd.AddCommand(updateCmd)

	var deleteVersion int64
	deleteCmd := &cobra.Command{
		Use:   "delete WORK_ID",
		Short: "Delete a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version *int64
			if cmd.Flags().Changed("version") {
				version = &deleteVersion
			}
			return newClient().DeleteWork(context.Background(), args[0], version)
		},
	}
	deleteCmd.Flags().Int64Var(&deleteVersion, "version", 0, "expected version")
	worksCmd.AddCommand(deleteCmd)

	eventsCmd := &cobra.Command{
		Use:   "events WORK_ID",
		Short: "Show a work's event history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().WorkEvents(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	worksCmd.AddCommand(eventsCmd)

	linkCmd := &cobra.Command{
		Use:   "link-media WORK_ID MEDIA_ID",
		Short: "Link a media to a work",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().AddWorkMedia(context.Background(), args[0], nil, args[1])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	worksCmd.AddCommand(linkCmd)

	unlinkCmd := &cobra.Command{
		Use:   "unlink-media WORK_ID MEDIA_ID",
		Short: "Unlink a media from a work",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().RemoveWorkMedia(context.Background(), args[0], nil, args[1])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	worksCmd.AddCommand(unlinkCmd)

	rootCmd.AddCommand(worksCmd)
}
