package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/quiby-ai/staffdesk/pkg/editor"
	"github.com/quiby-ai/staffdesk/pkg/events"
	"github.com/quiby-ai/staffdesk/pkg/obs"
	"github.com/quiby-ai/staffdesk/pkg/route"
)

func (a *app) list(ctx context.Context, _ *cli.Command) error {
	records, err := a.api.List(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(a.out, employeeTable(records))
	return nil
}

// recordID reads the id argument, which may also be an edit route or URL.
func recordID(cmd *cli.Command, name string) (string, error) {
	id, err := route.ID(cmd.Args().First())
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("%s: %v", name, err), 2)
	}
	return id, nil
}

func (a *app) show(ctx context.Context, cmd *cli.Command) error {
	id, err := recordID(cmd, "show")
	if err != nil {
		return err
	}
	e, err := a.api.Get(ctx, id)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(a.out, recordView(e))
	return nil
}

// newController starts an editor for one session.
func (a *app) newController(ctx context.Context, nav editor.Navigator, confirm editor.Confirmer, opts ...editor.Option) *editor.Controller {
	opts = append([]editor.Option{
		editor.WithDebounce(a.cfg.Editor.Debounce),
		editor.WithPublisher(a.pub),
	}, opts...)
	c := editor.New(a.api, nav, confirm, opts...)
	c.Start(ctx)
	return c
}

// load initializes c with id and waits for the record.
func load(ctx context.Context, c *editor.Controller, id string) (editor.View, error) {
	if err := c.Initialize(ctx, id); err != nil {
		return editor.View{}, err
	}
	if err := c.Wait(ctx); err != nil {
		return editor.View{}, err
	}
	v, err := c.Snapshot(ctx)
	if err != nil {
		return v, err
	}
	if v.State == editor.Errored {
		return v, cli.Exit(v.Error, 1)
	}
	return v, nil
}

func (a *app) edit(ctx context.Context, cmd *cli.Command) error {
	id, err := route.IDOrNew(cmd.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("edit: %v", err), 2)
	}
	path, err := route.Edit(id)
	if err != nil {
		return err
	}
	obs.Debug(ctx, "opening editor", "route", path)

	changes := make(wake, 1)
	nav := newExitNavigator()
	confirm := newFormConfirmer(changes)
	c := a.newController(ctx, nav, confirm, editor.WithOnChange(func(editor.View) { changes.notify() }))
	defer c.Destroy()

	if err := c.Attach(ctx); err != nil {
		return err
	}
	v, err := load(ctx, c, id)
	if err != nil {
		return err
	}

	session, cancel := context.WithCancel(ctx)
	defer cancel()

	final, err := tea.NewProgram(newEditModel(session, c, nav, confirm, changes, v), programOptions(session, a.in, a.out)...).Run()
	if err != nil {
		return err
	}
	m, ok := final.(editModel)
	switch {
	case !ok:
		return fmt.Errorf("edit: unexpected model %T", final)
	case m.err != nil:
		return m.err
	case m.route != "":
		fmt.Fprintf(a.out, "Done, back to %s.\n", m.route)
	case m.left:
		fmt.Fprintln(a.out, "Changes discarded.")
	}
	return nil
}

func (a *app) delete(ctx context.Context, cmd *cli.Command) error {
	id, err := recordID(cmd, "delete")
	if err != nil {
		return err
	}

	nav := newExitNavigator()
	c := a.newController(ctx, nav, programConfirmer{in: a.in, out: a.out})
	defer c.Destroy()

	if _, err := load(ctx, c, id); err != nil {
		return err
	}
	if err := c.Delete(ctx); err != nil {
		return err
	}
	if err := c.Wait(ctx); err != nil {
		return err
	}
	v, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}

	select {
	case route := <-nav.done:
		fmt.Fprintf(a.out, "Done, back to %s.\n", route)
		return nil
	default:
	}
	if v.Error != "" {
		return cli.Exit(v.Error, 1)
	}
	fmt.Fprintln(a.out, "Kept.")
	return nil
}

func (a *app) watch(ctx context.Context, _ *cli.Command) error {
	if !a.cfg.Kafka.Enabled() {
		return cli.Exit("watch needs Kafka brokers, set kafka.brokers or STAFFDESK_KAFKA_BROKERS", 2)
	}
	consumer := events.NewKafkaConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.GroupID)
	defer consumer.Close()

	fmt.Fprintf(a.out, "watching %s\n", strings.Join(events.Topics, ", "))
	return consumer.Run(ctx, events.HandlerFunc(func(_ context.Context, e events.Envelope[events.RecordChanged]) error {
		fmt.Fprintf(a.out, "%s\t%s\n", e.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), e.Payload)
		return nil
	}))
}
