package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	"github.com/robotalks/rtt.go/pkg/env"
	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/uplink"
	"github.com/robotalks/rtt.go/pkg/uplink/mqtt"
	"github.com/robotalks/rtt.go/pkg/uplink/websocket"
)

var (
	device = "+"
	listen string
)

func init() {
	env.SetupFlags()
	flag.StringVar(&device, "from", device, "Device to receive from, + for all.")
	flag.StringVar(&listen, "listen", listen, "Also accept websocket uplinks on this address, e.g. :8080.")
}

func main() {
	flag.Parse()
	if err := env.LoadDotEnv(); err != nil {
		log.Fatalln(err)
	}
	conf := env.NewConfig()
	if conf.MQTTURL == "" && listen == "" {
		conf.MQTTURL = "mqtt://localhost:1883/"
	}

	var recv *uplink.Receiver
	if conf.OutputFile == "" || conf.OutputFile == "-" {
		recv = uplink.NewReceiver(os.Stdout)
	} else {
		recv = uplink.NewDemuxReceiver(uplink.FileOpener(conf.OutputFile))
	}
	defer recv.Close()

	runner := fx.NewRunner().HandleSignals()
	if conf.MQTTURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTURL)
		if err != nil {
			log.Fatalln(err)
		}
		if err := q.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		token := q.Sub(mqtt.Topic(device, conf.TraceChannel()), func(topic string, payload []byte) {
			receive(recv, topic, payload)
		})
		if token.Wait(); token.Error() != nil {
			log.Fatalf("subscribe: %v", token.Error())
		}
	}
	if listen != "" {
		runner.Go(fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
			return serveWebSocket(ctx, listen, recv)
		})))
	}
	runner.Go(fx.NamedRun("monitor", fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})))
	if err := runner.Wait(); err != nil && err != fx.ErrForcedExit {
		glog.Error(err)
	}
	glog.Infof("%d chunks lost, %d dropped", recv.Lost(), recv.Dropped())
}

func receive(recv *uplink.Receiver, from string, payload []byte) {
	c, err := recv.Receive(payload)
	if _, ok := err.(*uplink.UnexpectedStreamError); ok {
		glog.V(2).Infof("%s: %v", from, err)
		return
	}
	if err != nil {
		glog.Errorf("%s: bad chunk: %v", from, err)
		return
	}
	glog.V(2).Infof("%s: session %s seq %d, %d bytes", from, c.Session, c.Seq, len(c.Data))
}

func serveWebSocket(ctx context.Context, addr string, recv *uplink.Receiver) error {
	server := &http.Server{
		Addr: addr,
		Handler: xws.Handler(func(conn *xws.Conn) {
			from := conn.Request().RemoteAddr
			rw := websocket.New(conn)
			for {
				pkt, err := rw.ReadPacket()
				if err != nil {
					if err != io.EOF {
						glog.Warningf("%s: %v", from, err)
					}
					return
				}
				receive(recv, from, pkt)
			}
		}),
	}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	glog.Infof("accepting websocket uplinks on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
