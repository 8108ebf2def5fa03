package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"thing-counter/internal/client"
	"thing-counter/internal/counter/domain/model"

	"github.com/spf13/cobra"
)

var step int64

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your counters",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a counter starting at 0",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCreate,
}

var incCmd = &cobra.Command{
	Use:   "inc <counter>",
	Short: "Increase a counter",
	Long:  "Increase a counter, given by id or by its exact name.",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runIncrease(cmd, args[0], step) },
}

var decCmd = &cobra.Command{
	Use:   "dec <counter>",
	Short: "Decrease a counter",
	Long:  "Decrease a counter, given by id or by its exact name.",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runIncrease(cmd, args[0], -step) },
}

var renameCmd = &cobra.Command{
	Use:   "rename <counter> <new name>",
	Short: "Rename a counter",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRename,
}

var rmCmd = &cobra.Command{
	Use:     "rm <counter>",
	Aliases: []string{"delete"},
	Short:   "Delete a counter",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print counter changes as they happen",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	incCmd.Flags().Int64Var(&step, "by", 1, "amount")
	decCmd.Flags().Int64Var(&step, "by", 1, "amount")

	rootCmd.AddCommand(listCmd, createCmd, incCmd, decCmd, renameCmd, rmCmd, watchCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	counters, err := c.ListCounters(cmd.Context(), session.UID)
	if err != nil {
		return err
	}
	printCounters(cmd.OutOrStdout(), counters)
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return errors.New("a counter needs a name")
	}
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	counter, err := c.CreateCounter(cmd.Context(), session.UID, name)
	if err != nil {
		return err
	}
	printCounter(cmd.OutOrStdout(), *counter)
	return nil
}

func runIncrease(cmd *cobra.Command, ref string, delta int64) error {
	if delta == 0 {
		return errors.New("--by must not be 0")
	}
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveCounter(cmd.Context(), c, session.UID, ref)
	if err != nil {
		return err
	}
	counter, err := c.Increase(cmd.Context(), session.UID, id, delta)
	if err != nil {
		return err
	}
	printCounter(cmd.OutOrStdout(), *counter)
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if name == "" {
		return errors.New("a counter needs a name")
	}
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveCounter(cmd.Context(), c, session.UID, args[0])
	if err != nil {
		return err
	}
	counter, err := c.RenameCounter(cmd.Context(), session.UID, id, name)
	if err != nil {
		return err
	}
	printCounter(cmd.OutOrStdout(), *counter)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveCounter(cmd.Context(), c, session.UID, args[0])
	if err != nil {
		return err
	}
	if err := c.DeleteCounter(cmd.Context(), session.UID, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	return nil
}

// runWatch prints every snapshot until interrupted or the server ends the listener
func runWatch(cmd *cobra.Command, args []string) error {
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	listener, err := c.Listen(cmd.Context(), session.UID)
	if err != nil {
		return err
	}
	defer listener.Close()

	out := cmd.OutOrStdout()
	list := model.NewCounterList()
	for snapshot := range listener.Snapshots() {
		list.ApplySnapshot(snapshot)
		printChanges(out, snapshot)
	}

	err = listener.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Listener closed with %d counters\n", list.Len())
	return nil
}

// resolveCounter accepts a counter id or an exact, unique name
func resolveCounter(ctx context.Context, c *client.Client, uid, ref string) (string, error) {
	counters, err := c.ListCounters(ctx, uid)
	if err != nil {
		return "", err
	}
	return matchCounter(counters, ref)
}

func matchCounter(counters []model.Counter, ref string) (string, error) {
	var byName []string
	for _, counter := range counters {
		if counter.ID == ref {
			return counter.ID, nil
		}
		if counter.Name == ref {
			byName = append(byName, counter.ID)
		}
	}
	switch len(byName) {
	case 0:
		return "", fmt.Errorf("no counter %q", ref)
	case 1:
		return byName[0], nil
	default:
		return "", fmt.Errorf("%d counters are named %q, use the id", len(byName), ref)
	}
}

func printCounters(w io.Writer, counters []model.Counter) {
	if len(counters) == 0 {
		fmt.Fprintln(w, "No counters yet.")
		return
	}
	fmt.Fprintf(w, "%-22s %-24s %8s\n", "ID", "NAME", "VALUE")
	for _, c := range counters {
		printCounter(w, c)
	}
}

func printCounter(w io.Writer, c model.Counter) {
	fmt.Fprintf(w, "%-22s %-24s %8s\n", c.ID, c.Name, strconv.FormatInt(c.Value, 10))
}

func printChanges(w io.Writer, s model.Snapshot) {
	for _, change := range s.Changes {
		fmt.Fprintf(w, "%-9s %-22s %-24s %8d\n", change.Type, change.Counter.ID, change.Counter.Name, change.Counter.Value)
	}
}
