package enums

type ManageAction string

const (
	ManageActionBlock   ManageAction = "block"
	ManageActionSuspend ManageAction = "suspend"
	ManageActionUnblock ManageAction = "unblock"
)

func (a ManageAction) Valid() bool {
	switch a {
	case ManageActionBlock, ManageActionSuspend, ManageActionUnblock:
		return true
	default:
		return false
	}
}
