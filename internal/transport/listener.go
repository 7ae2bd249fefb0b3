// v0
// internal/transport/listener.go
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/logging"
)

// CommandListener serves <prefix>/cmd. Replies and point results go to
// <prefix>/result.
type CommandListener struct {
	ctrl    command.Controller
	reply   Publisher
	topics  Topics
	log     *slog.Logger
	timeout time.Duration
	ctx     context.Context
}

func NewCommandListener(ctx context.Context, ctrl command.Controller, reply Publisher, prefix string, log *slog.Logger) *CommandListener {
	if log == nil {
		log = logging.Discard()
	}
	return &CommandListener{
		ctrl:    ctrl,
		reply:   reply,
		topics:  Topics{Prefix: prefix},
		log:     log,
		timeout: 5 * time.Second,
		ctx:     ctx,
	}
}

// Subscribe registers the command handler on client. It is meant to be
// called from the on-connect hook so the subscription survives reconnects.
func (l *CommandListener) Subscribe(client mqttClient) error {
	topic := l.topics.Command()
	tok := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		l.Handle(l.ctx, msg.Payload())
	})
	ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()
	if err := waitToken(ctx, tok); err != nil {
		l.log.Error("mqtt_subscribe_failed", "topic", topic, "err", err)
		return err
	}
	l.log.Info("mqtt_subscribed", "topic", topic)
	return nil
}

// Handle executes one command payload and publishes the reply.
func (l *CommandListener) Handle(ctx context.Context, payload []byte) {
	env, err := command.Decode(payload)
	if err != nil {
		l.log.Warn("command_rejected", "err", err)
		l.send(ctx, ReplyMessage{Type: "error", Error: err.Error()})
		return
	}
	l.log.Info("command_received", "cmd", env.Cmd)

	switch env.Cmd {
	case command.Simulate:
		runID, err := l.ctrl.StartSimulation(ctx, env.Simulate)
		if err != nil {
			l.log.Warn("command_failed", "cmd", env.Cmd, "err", err)
			l.send(ctx, ReplyMessage{Type: "error", Cmd: env.Cmd, Error: err.Error()})
			return
		}
		l.send(ctx, ReplyMessage{Type: "simulation_started", Cmd: env.Cmd, RunID: runID})
	case command.Infer:
		res, err := l.ctrl.Infer(env.Infer)
		if err != nil {
			l.log.Warn("command_failed", "cmd", env.Cmd, "err", err)
			l.send(ctx, ReplyMessage{Type: "error", Cmd: env.Cmd, Error: err.Error()})
			return
		}
		l.send(ctx, PointMessage{Type: "point", InferResponse: res})
	case command.Cancel:
		ok := l.ctrl.CancelSimulation()
		l.send(ctx, ReplyMessage{Type: "cancel", Cmd: env.Cmd, Cancelled: &ok})
	}
}

func (l *CommandListener) send(ctx context.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		l.log.Error("reply_marshal_failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.reply.Publish(ctx, KindResult, "", b); err != nil {
		l.log.Warn("reply_publish_failed", "err", err)
	}
}
