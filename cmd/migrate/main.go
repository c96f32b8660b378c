package main

import (
	"flag"
	"fmt"
	"os"

	"aliasmail/backend/internal/config"
	"aliasmail/backend/internal/logger"
	"aliasmail/backend/internal/storage/sqlstore"
)

// 独立的建表工具：在部署前对 postgres/mysql 执行自动迁移，
// 避免让服务进程持有 DDL 权限。
func main() {
	driver := flag.String("type", "", "数据库类型: postgres 或 mysql（默认取配置）")
	dsn := flag.String("dsn", "", "数据库连接字符串（默认取配置）")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if *driver == "" {
		*driver = cfg.Storage.Mode
	}
	if *dsn == "" {
		*dsn = cfg.Storage.DSN
	}

	if *driver != "postgres" && *driver != "mysql" {
		fmt.Fprintf(os.Stderr, "错误: 不支持的数据库类型 %q（支持 postgres、mysql）\n", *driver)
		os.Exit(1)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "错误: 缺少数据库连接字符串，经 -dsn 或 ALIASMAIL_STORAGE_DSN 提供")
		os.Exit(1)
	}

	log := logger.NewDevelopment()

	// NewStore 在打开连接时执行自动迁移
	store, err := sqlstore.NewStore(*driver, *dsn, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 迁移失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("数据库迁移完成")
}
