// Package transfer 负责跨链转账请求的构造、异步派发与状态追踪。
//
// Builder 校验转账意图并产出 ccip_send 指令，Dispatcher 在独立的工作协程中
// 调用 Submitter 完成签名与广播，并对状态注册表执行唯一一次终态写入。
// Store 是状态注册表的抽象，提供内存、Redis 与 MySQL 三种实现。
package transfer
