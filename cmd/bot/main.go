package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dexgrid-bot-go/internal/bot"
	"dexgrid-bot-go/internal/config"
	"dexgrid-bot-go/internal/dex"
	"dexgrid-bot-go/internal/logger"
	"dexgrid-bot-go/internal/manager"
	"dexgrid-bot-go/internal/models"
	"dexgrid-bot-go/internal/persistence"
)

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// --- 初始化日志 (提前) ---
	// 为了在加载.env或配置时就能记录日志, 先用一个默认配置初始化logger
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("未找到 .env 文件，将从系统环境变量中读取。")
	} else {
		logger.S().Info("成功从 .env 文件加载配置。")
	}

	// --- 加载 JSON 配置 ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}
	mcfg, err := config.Validate(cfg)
	if err != nil {
		logger.S().Fatalf("配置校验失败: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	// --- 初始化链上客户端 ---
	refFeed := dex.NewRefPriceFeed(cfg.RefFeedURL, logger.S())
	node, err := dex.NewNodeClient(cfg.NodeWSURL, refFeed, logger.S())
	if err != nil {
		logger.S().Fatalf("连接钱包节点失败: %v", err)
	}
	defer node.Close()

	// --- 初始化快照仓库 ---
	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		logger.S().Fatalf("打开快照数据库失败: %v", err)
	}
	defer repo.Close()

	// --- 初始化管理器与机器人 ---
	om := manager.NewOrderManager(mcfg, node, logger.S())
	gridBot := bot.NewGridBot(cfg, mcfg, om, node, repo, logger.S())

	if err := gridBot.Start(); err != nil {
		logger.S().Fatalf("机器人启动失败: %v", err)
	}

	// 等待中断信号以实现优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	gridBot.Stop()
	logger.S().Info("机器人已成功停止。")
}
