package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/queue"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"

	"github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	enqueuePhasesKey = "enqueue.phases"
	enqueueForceKey  = "enqueue.force"
	enqueueDeleteKey = "enqueue.delete"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue PAPER...",
	Short: "Queue papers for the worker",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		phases := viper.GetString(enqueuePhasesKey)
		if _, err := pipeline.ParsePhases(phases); err != nil {
			return err
		}
		del := viper.GetBool(enqueueDeleteKey)

		conn, err := amqp091.Dial(queue.URL())
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			return err
		}

		for _, id := range args {
			var (
				body []byte
				name string
			)
			if del {
				name = queue.DeleteQueue
				body, err = json.Marshal(queue.DeletePaperMsg{PaperID: id})
			} else {
				name = queue.PaperQueue
				body, err = json.Marshal(queue.PaperMsg{PaperID: id, Phases: phases, Force: viper.GetBool(enqueueForceKey)})
			}
			if err != nil {
				return err
			}
			if err := queue.PublishFIFO(ctx, ch, name, body); err != nil {
				return fmt.Errorf("failed to enqueue %s: %w", id, err)
			}
			cmd.Printf("Queued %s on %s\n", id, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("phases", "all", `phases to run, "all" or a list like "1,3,5"`)
	enqueueCmd.Flags().Bool("force", false, "rerun phases whose output already exists")
	enqueueCmd.Flags().Bool("delete", false, "queue deletion of the derived graph instead")

	bindFlagToViper(enqueuePhasesKey, enqueueCmd.Flags().Lookup("phases"))
	bindFlagToViper(enqueueForceKey, enqueueCmd.Flags().Lookup("force"))
	bindFlagToViper(enqueueDeleteKey, enqueueCmd.Flags().Lookup("delete"))
}
