// Package protocol 定义 peerflood 的线路协议
//
// 线路格式为以换行符分隔的 JSON 对象（每行一个消息），承载于持久 TCP 连接之上。
// 共两种外形：
//
//   - 握手对象：{"helo":{"from":"","to":"","publicip":false}}
//   - 命令对象：{"cmd":"<name>","argv":{...}}
//
// 命令集合是封闭的（letmeintr / whohas / tellto / seeya / ping / pong），
// 解码结果为实现 Message 接口的具体类型，调用方通过类型分支处理，
// 未知命令返回 ErrUnknownCommand 而不是在查找表上失败。
//
// 分帧由 LineReader 负责：跨多次读取的半行会被重新拼接，
// 单行长度受上限约束，超长行被丢弃至下一个换行符并返回 ErrLineTooLong，
// 后续行的解析不受影响。
package protocol
