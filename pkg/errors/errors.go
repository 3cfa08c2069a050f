package errors

import (
	"errors"
	"fmt"
)

// 统一的业务错误分类：不存在 / 无权访问 / 存储层故障
// 各 Service 的模块级错误通过 %w 包装这里的哨兵错误，调用方用 errors.Is 判断类别
var (
	ErrNotFound  = errors.New("记录不存在")
	ErrForbidden = errors.New("无权访问该记录")
)

// TransportError 存储层（PostgreSQL / Redis）读写失败
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport 包装存储层错误；err 为 nil 时返回 nil
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransport 判断错误链中是否包含 TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
