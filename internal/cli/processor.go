package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewProcessorCmd создаёт группу команд для управления процессорами.
func NewProcessorCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processor",
		Short: "Manage message processors",
	}

	cmd.AddCommand(
		newProcessorListCmd(clientFn, outputFn),
		newProcessorShowCmd(clientFn, outputFn),
		newProcessorActivateCmd(clientFn, outputFn),
		newProcessorDeactivateCmd(clientFn, outputFn),
	)

	return cmd
}

func newProcessorListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List message processors",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			processors, err := client.ListProcessors()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "STORE", "STATUS", "ENDPOINT", "SCHEDULE", "DEPTH"}
			rows := make([][]string, len(processors))
			for i, p := range processors {
				rows[i] = []string{
					p.Name, p.Store, p.Status, p.TargetEndpoint,
					formatSchedule(p), formatDepth(p.Depth),
				}
			}

			out.Print(headers, rows, processors)
			return nil
		},
	}
}

func newProcessorShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show message processor details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.GetProcessor(args[0])
			if err != nil {
				return err
			}

			attempts := "unlimited"
			if p.MaxDeliverAttempts > 0 {
				attempts = strconv.Itoa(p.MaxDeliverAttempts)
			}

			out.KV([][2]string{
				{"Name", p.Name},
				{"Store", p.Store},
				{"Status", p.Status},
				{"Endpoint", p.TargetEndpoint},
				{"Schedule", formatSchedule(*p)},
				{"Retry interval", formatMillis(p.RetryIntervalMS)},
				{"Max attempts", attempts},
				{"Depth", formatDepth(p.Depth)},
			}, p)
			return nil
		},
	}
}

func newProcessorActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate NAME",
		Short: "Resume message delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.ActivateProcessor(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Processor activated: %s", p.Name))
			out.Print(
				[]string{"NAME", "STORE", "STATUS", "DEPTH"},
				[][]string{{p.Name, p.Store, p.Status, formatDepth(p.Depth)}},
				p,
			)
			return nil
		},
	}
}

func newProcessorDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate NAME",
		Short: "Pause message delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.DeactivateProcessor(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Processor deactivated: %s", p.Name))
			out.Print(
				[]string{"NAME", "STORE", "STATUS", "DEPTH"},
				[][]string{{p.Name, p.Store, p.Status, formatDepth(p.Depth)}},
				p,
			)
			return nil
		},
	}
}

// --- Formatting helpers ---

func formatSchedule(p ProcessorResponse) string {
	if p.CronExpression != "" {
		return "cron(" + p.CronExpression + ")"
	}
	return "every " + formatMillis(p.IntervalMS)
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatDepth(depth int) string {
	if depth < 0 {
		return "-"
	}
	return strconv.Itoa(depth)
}
