package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/cli"
	"github.com/simlink-project/simlink/internal/protocol"
)

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func catalogCmd() *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "catalog [name...]",
		Short: "List message definitions",
		Long:  `List the message catalog, or only the named messages, with their frequency class, number and wire value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(template)
			if err != nil {
				return err
			}
			cli.PrintCatalog(cmd.OutOrStdout(), cat, args...)
			if len(args) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d messages\n", cat.Len())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Message template file (default: built-in)")

	return cmd
}

func dissectCmd() *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "dissect [hex...]",
		Short: "Decode captured datagrams",
		Long: `Decode a datagram given as hex bytes (spaces allowed). Without arguments,
each line of standard input is decoded as one datagram.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(template)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return dissect(out, cat, strings.Join(args, " "))
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 4*protocol.MaxDatagramSize)
			failed := 0
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if err := dissect(out, cat, line); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					failed++
				}
				fmt.Fprintln(out)
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d datagrams could not be decoded", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Message template file (default: built-in)")

	return cmd
}

func dissect(w io.Writer, cat *catalog.Catalog, dump string) error {
	data, err := protocol.ParseHex(dump)
	if err != nil {
		return err
	}
	d, err := protocol.Dissect(data, cat)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, d.HeaderLine())
	if len(d.Packet.Acks) > 0 {
		fmt.Fprintf(w, "  acks: %v\n", d.Packet.Acks)
	}
	if d.Name == "" {
		fmt.Fprintf(w, "  unknown message %s\n", d.Packet.Header.Message)
		return nil
	}
	if d.Body != nil {
		for _, name := range d.Body.Names() {
			v, _ := d.Body.Get(name)
			fmt.Fprintf(w, "  %s: %s\n", name, protocol.FormatValue(v))
		}
	}
	if d.BodyErr != nil {
		fmt.Fprintf(w, "  (body incomplete: %v)\n", d.BodyErr)
	}
	return nil
}

