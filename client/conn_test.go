package client_test

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/homelink/client"
	"github.com/luma/homelink/device"
	"github.com/luma/homelink/session"
	"github.com/luma/homelink/transport"
)

var _ = Describe("client / Conn", func() {
	var (
		ctx    context.Context
		server *transport.TCP
		conn   *client.Conn
	)

	BeforeEach(func() {
		ctx = context.Background()

		server = transport.NewTCP(transport.Options{Host: "127.0.0.1", Log: zap.NewNop()},
			session.NewFactory(device.Identity{Name: "Kitchen Socket", Model: "SS-1", RatedPower: 3500}, nil, zap.NewNop()))
		Expect(server.Start(ctx)).To(Succeed())

		var err error
		conn, err = client.Dial(ctx, server.Addr().String(), client.Options{})
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		Expect(conn.Close()).To(Succeed())
		Expect(server.Close()).To(Succeed())
	})

	It("returns one response per command", func() {
		resp, err := conn.Send(ctx, "on")
		Expect(err).To(Succeed())
		Expect(resp.Text).To(Equal("Socket turned ON"))

		resp, err = conn.Send(ctx, "status")
		Expect(err).To(Succeed())
		Expect(resp.Text).To(Equal("Status: ON"))
	})

	It("classifies unknown commands as failures", func() {
		resp, err := conn.Send(ctx, "foo")
		Expect(err).To(Succeed())
		Expect(resp.IsErr()).To(BeTrue())
		Expect(resp.Text).To(Equal("Unknown command: foo"))
	})

	It("is disconnected after exit", func() {
		resp, err := conn.Send(ctx, "exit")
		Expect(err).To(Succeed())
		Expect(resp.Text).To(Equal("Goodbye"))

		_, err = conn.Send(ctx, "status")
		Expect(err).To(MatchError(client.ErrDisconnected))
	})

	It("reports a server that went away", func() {
		Expect(server.Close()).To(Succeed())

		Eventually(func() error {
			_, err := conn.Send(ctx, "status")
			return err
		}).Should(HaveOccurred())

		_, err := conn.Send(ctx, "status")
		Expect(err).To(MatchError(client.ErrDisconnected))
	})

	It("honours context cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := conn.Send(cancelled, "status")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("fails to dial a closed port", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(Succeed())
		addr := l.Addr().String()
		l.Close()

		_, err = client.Dial(ctx, addr, client.Options{Timeout: time.Second})
		Expect(err).To(HaveOccurred())

		var opErr *net.OpError
		Expect(errors.As(err, &opErr)).To(BeTrue())
	})
})
