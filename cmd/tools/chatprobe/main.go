package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chatsync/internal/config"
	"github.com/zhouzirui/chatsync/internal/model/event"
	"github.com/zhouzirui/chatsync/internal/service/connection"
)

// printer 打印每个收到的事件。
type printer struct {
	raw bool
}

func (p printer) OnOpen(_ context.Context, stream connection.Stream) {
	log.Printf("[%s] 已连接", stream)
}

func (p printer) OnMessage(_ context.Context, stream connection.Stream, data []byte) {
	if p.raw {
		fmt.Printf("[%s] %s\n", stream, data)
		return
	}
	ev, err := event.Decode(data)
	if err != nil {
		log.Printf("[%s] 无法解析: %v", stream, err)
		return
	}
	pretty, _ := json.Marshal(ev)
	fmt.Printf("[%s] %s %s\n", stream, ev.Type(), pretty)
}

func (p printer) OnClose(stream connection.Stream, state connection.State, err error) {
	log.Printf("[%s] 连接结束: %s (%v)", stream, state, err)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	token := flag.String("token", cfg.Auth.AccessToken, "访问令牌，默认读取 CHATSYNC_ACCESS_TOKEN")
	only := flag.String("stream", "", "只连接指定流: chat 或 notifications")
	markRead := flag.Int64("mark-read", 0, "连接后发送 mark_read 请求的会话 ID")
	raw := flag.Bool("raw", false, "打印原始 JSON 帧")
	duration := flag.Duration("duration", 0, "运行时长，0 表示直到中断")

	flag.Parse()

	if *token == "" {
		flag.Usage()
		log.Fatal("请通过 -token 或 CHATSYNC_ACCESS_TOKEN 提供令牌")
	}

	streams := connection.Streams()
	if *only != "" {
		stream := connection.Stream(*only)
		if !stream.Valid() {
			log.Fatalf("未知的流: %s", *only)
		}
		streams = []connection.Stream{stream}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	opts := connection.DefaultOptions(cfg.Socket.URL)
	opts.HandshakeTimeout = cfg.Socket.HandshakeTimeout
	manager := connection.NewManager(opts, printer{raw: *raw}, nil)
	defer manager.DisconnectAll()

	for _, stream := range streams {
		if err := manager.Connect(ctx, stream, *token); err != nil {
			log.Fatalf("连接 %s 失败: %v", stream, err)
		}
	}

	if *markRead > 0 {
		if err := manager.Send(connection.StreamChat, event.NewMarkRead(*markRead)); err != nil {
			log.Printf("[WARN] 发送 mark_read 失败: %v", err)
		}
	}

	<-ctx.Done()
	log.Printf("退出，状态: %v", manager.Status())
}
