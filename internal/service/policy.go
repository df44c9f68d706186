package service

type Operation int

const (
	OpCreate Operation = iota
	OpUpdateDetails
	OpUpdatePassword
	OpUpdateLogin
	OpListActive
	OpGetUser
	OpListOlderThan
	OpDelete
	OpRestore
	OpListLogins
)

// Authorize 纯授权决策。actorIsAdmin 指「管理员且自身账号有效」；
// 非管理员只能在目标是本人且本人未被撤销时做三类自助修改。
func Authorize(actorLogin string, actorIsAdmin bool, targetLogin string, targetActive bool, op Operation) bool {
	if actorIsAdmin {
		return true
	}
	switch op {
	case OpUpdateDetails, OpUpdatePassword, OpUpdateLogin:
		return actorLogin == targetLogin && targetActive
	default:
		return false
	}
}
