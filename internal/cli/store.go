package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewStoreCmd создаёт группу команд для управления message store'ами.
func NewStoreCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage message stores",
	}

	cmd.AddCommand(
		newStoreListCmd(clientFn, outputFn),
		newStoreShowCmd(clientFn, outputFn),
		newStoreSendCmd(clientFn, outputFn),
	)

	return cmd
}

func newStoreListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List message stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stores, err := client.ListStores()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "DEPTH"}
			rows := make([][]string, len(stores))
			for i, s := range stores {
				rows[i] = []string{s.Name, formatDepth(s.Depth)}
			}

			out.Print(headers, rows, stores)
			return nil
		},
	}
}

func newStoreShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show message store details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.GetStore(args[0])
			if err != nil {
				return err
			}

			out.KV([][2]string{
				{"Name", s.Name},
				{"Depth", formatDepth(s.Depth)},
			}, s)
			return nil
		},
	}
}

func newStoreSendCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var endpoint string
	var contentType string
	var body string
	var bodyFile string
	var headers []string

	cmd := &cobra.Command{
		Use:   "send STORE",
		Short: "Enqueue a message into a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var data []byte
			switch {
			case bodyFile != "":
				fileData, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("failed to read body file: %w", err)
				}
				data = fileData
			case body != "":
				data = []byte(body)
			default:
				return fmt.Errorf("either --body or --body-file is required")
			}

			// Тело уходит в JSON-запрос как есть
			if !json.Valid(data) {
				return fmt.Errorf("message body is not valid JSON")
			}

			req := EnqueueMessageRequest{
				Endpoint:    endpoint,
				ContentType: contentType,
				Body:        json.RawMessage(data),
			}

			if len(headers) > 0 {
				req.Headers = make(map[string]string)
				for _, kv := range headers {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid header format %q, expected KEY=VALUE", kv)
					}
					req.Headers[parts[0]] = parts[1]
				}
			}

			msg, err := client.SendMessage(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Message enqueued: %s", msg.ID))
			out.Print(
				[]string{"ID", "STORE", "ENDPOINT", "RECEIVED"},
				[][]string{{msg.ID, msg.Store, msg.Endpoint, msg.ReceivedAt}},
				msg,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Target endpoint name (overrides processor default)")
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "Message content type")
	cmd.Flags().StringVar(&body, "body", "", "Message body as JSON string")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Path to JSON file with message body")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "Message header KEY=VALUE (repeatable)")

	return cmd
}
