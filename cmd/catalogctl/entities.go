package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	// Users
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var userBody string
	usersCreate := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := decodeBody(userBody)
			if err != nil {
				return err
			}
			out, err := newClient().CreateUser(context.Background(), body)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	usersCreate.Flags().StringVarP(&userBody, "body", "b", "", "user document as JSON")
	usersCmd.AddCommand(usersCreate)

	usersGet := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get a user by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().GetUser(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	usersCmd.AddCommand(usersGet)
	rootCmd.AddCommand(usersCmd)

	// Organisations
	orgsCmd := &cobra.Command{Use: "orgs", Short: "Organisation operations"}

	var orgBody string
	orgsCreate := &cobra.Command{
		Use:   "create",
		Short: "Create an organisation",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := decodeBody(orgBody)
			if err != nil {
				return err
			}
			out, err := newClient().CreateOrganisation(context.Background(), body)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	orgsCreate.Flags().StringVarP(&orgBody, "body", "b", "", "organisation document as JSON")
	orgsCmd.AddCommand(orgsCreate)

	orgsGet := &cobra.Command{
		Use:   "get ORG_ID",
		Short: "Get an organisation by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().GetOrganisation(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	orgsCmd.AddCommand(orgsGet)
	rootCmd.AddCommand(orgsCmd)

	// Media
	mediaCmd := &cobra.Command{Use: "media", Short: "Media operations"}

	var mediaBody string
	mediaCreate := &cobra.Command{
		Use:   "create",
		Short: "Create a media",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := decodeBody(mediaBody)
			if err != nil {
				return err
			}
			out, err := newClient().CreateMedia(context.Background(), body)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	mediaCreate.Flags().StringVarP(&mediaBody, "body", "b", "", "media document as JSON")
	mediaCmd.AddCommand(mediaCreate)

	mediaGet := &cobra.Command{
		Use:   "get MEDIA_ID",
		Short: "Get a media by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().GetMedia(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	mediaCmd.AddCommand(mediaGet)
	rootCmd.AddCommand(mediaCmd)
}
