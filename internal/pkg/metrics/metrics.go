package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RegistrationsTotal 统计注册提交次数（成功写入暂存记录的）。
	RegistrationsTotal prometheus.Counter

	// ConfirmationsTotal 按结果统计邮箱确认请求（confirmed / expired / not_found）。
	ConfirmationsTotal *prometheus.CounterVec

	// LoginsTotal 按结果统计登录请求（ok / not_found / mismatch）。
	LoginsTotal *prometheus.CounterVec

	// EmailsSentTotal 统计成功发出的邮件数量。
	EmailsSentTotal prometheus.Counter
)

var initOnce sync.Once

// InitMetrics 注册 Prometheus 指标。重复调用是安全的。
func InitMetrics() {
	initOnce.Do(func() {
		RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "registrations_total",
			Help:      "Number of accepted registration submissions.",
		})
		ConfirmationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "confirmations_total",
			Help:      "Email confirmation requests by result.",
		}, []string{"result"})
		LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "logins_total",
			Help:      "Login requests by result.",
		}, []string{"result"})
		EmailsSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "emails_sent_total",
			Help:      "Number of outbound emails successfully handed to SMTP.",
		})

		prometheus.MustRegister(
			RegistrationsTotal,
			ConfirmationsTotal,
			LoginsTotal,
			EmailsSentTotal,
		)
	})
}
