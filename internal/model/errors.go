package model

import (
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// IsDuplicateErr 判断是否为 MySQL 唯一键冲突（错误码 1062）
func IsDuplicateErr(err error) bool {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
