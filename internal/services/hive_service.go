package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/gate"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
)

var (
	ErrInvalidHiveName        = errors.New("Hive 名称需为 1-50 个字符")
	ErrInvalidContractAddress = errors.New("合约地址格式无效")
)

type HiveService struct {
	HiveRepo   *repositories.HiveRepository
	MemberRepo *repositories.MembershipRepository
	Membership *MembershipService
}

func NewHiveService(
	hiveRepo *repositories.HiveRepository,
	memberRepo *repositories.MembershipRepository,
	membership *MembershipService,
) *HiveService {
	return &HiveService{
		HiveRepo:   hiveRepo,
		MemberRepo: memberRepo,
		Membership: membership,
	}
}

type CreateHiveRequest struct {
	Name             string `json:"name" binding:"required"`
	ContractAddress  string `json:"contract_address"`
	RequiresApproval bool   `json:"requires_approval"`
	AvatarURL        string `json:"avatar_url"`
}

// CreateHive 创建 Hive，创建者自动成为成员（同一事务）
func (s *HiveService) CreateHive(creatorID uint, req *CreateHiveRequest) (*models.Hive, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len([]rune(name)) > 50 {
		return nil, ErrInvalidHiveName
	}
	if req.ContractAddress != "" && !gate.ValidAddress(req.ContractAddress) {
		return nil, ErrInvalidContractAddress
	}

	hive := &models.Hive{
		Name:             name,
		AvatarURL:        req.AvatarURL,
		ContractAddress:  req.ContractAddress,
		RequiresApproval: req.RequiresApproval,
		CreatorID:        creatorID,
		MemberCount:      1,
	}
	if err := s.HiveRepo.CreateHive(hive); err != nil {
		return nil, err
	}
	return hive, nil
}

// MessagePreview 列表页的最近消息预览
type MessagePreview struct {
	Content      string    `json:"content"`
	SenderHandle string    `json:"sender_handle"`
	CreatedAt    time.Time `json:"created_at"`
}

// HiveSummary 列表项
type HiveSummary struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	AvatarURL        string          `json:"avatar_url"`
	ContractAddress  string          `json:"contract_address,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	MemberCount      int             `json:"member_count"`
	IsCreator        bool            `json:"is_creator"`
	HasAccess        bool            `json:"has_access"`
	LastMessage      *MessagePreview `json:"last_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ListMine 用户已加入的 Hive，按最近活跃降序
func (s *HiveService) ListMine(userID uint) ([]HiveSummary, error) {
	hives, err := s.HiveRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	// 预览消息整批取回，避免每个 Hive 一次查询
	hiveIDs := make([]uint, 0, len(hives))
	for i := range hives {
		hiveIDs = append(hiveIDs, hives[i].ID)
	}
	latest, err := s.HiveRepo.LastMessages(hiveIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]HiveSummary, 0, len(hives))
	for i := range hives {
		h := &hives[i]
		summary := HiveSummary{
			ID:               h.ID,
			Name:             h.Name,
			AvatarURL:        h.AvatarURL,
			ContractAddress:  h.ContractAddress,
			RequiresApproval: h.RequiresApproval,
			MemberCount:      h.MemberCount,
			IsCreator:        h.CreatorID == userID,
			HasAccess:        true,
			CreatedAt:        h.CreatedAt,
		}
		if last, ok := latest[h.ID]; ok {
			preview := MessagePreview{Content: last.Content, CreatedAt: last.CreatedAt}
			if last.Sender != nil {
				preview.SenderHandle = last.Sender.Handle
			}
			summary.LastMessage = &preview
		}
		summaries = append(summaries, summary)
	}

	// 最近活跃优先：有消息按消息时间，无消息按创建时间
	sort.SliceStable(summaries, func(i, j int) bool {
		return activityTime(summaries[i]).After(activityTime(summaries[j]))
	})
	return summaries, nil
}

func activityTime(s HiveSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}

// Browse 用户尚未加入的 Hive
func (s *HiveService) Browse(userID uint) ([]HiveSummary, error) {
	hives, err := s.HiveRepo.ListBrowsable(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]HiveSummary, 0, len(hives))
	for i := range hives {
		h := &hives[i]
		summaries = append(summaries, HiveSummary{
			ID:               h.ID,
			Name:             h.Name,
			AvatarURL:        h.AvatarURL,
			ContractAddress:  h.ContractAddress,
			RequiresApproval: h.RequiresApproval,
			MemberCount:      h.MemberCount,
			CreatedAt:        h.CreatedAt,
		})
	}
	return summaries, nil
}

// MemberInfo 名册条目（仅成员可见）
type MemberInfo struct {
	UserID      uint      `json:"user_id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	JoinedAt    time.Time `json:"joined_at"`
}

// HiveDetail 详情页投影
// 非成员拿到受限视图：名册为空、RequiresJoin 置位
// 成员个人信息（昵称/头像/加入时间）绝不能泄露给非成员
type HiveDetail struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	AvatarURL        string          `json:"avatar_url"`
	ContractAddress  string          `json:"contract_address,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	MemberCount      int             `json:"member_count"`
	CreatorID        uint            `json:"creator_id"`
	IsCreator        bool            `json:"is_creator"`
	RequiresJoin     bool            `json:"requires_join"`
	Members          []MemberInfo    `json:"members"`
	State            MembershipState `json:"membership_state"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Detail 按访问者身份分支投影
func (s *HiveService) Detail(userID, hiveID uint) (*HiveDetail, error) {
	hive, err := s.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHiveNotFound
	}
	if err != nil {
		return nil, err
	}

	state, err := s.Membership.StateOf(hive, userID)
	if err != nil {
		return nil, err
	}

	detail := &HiveDetail{
		ID:               hive.ID,
		Name:             hive.Name,
		AvatarURL:        hive.AvatarURL,
		ContractAddress:  hive.ContractAddress,
		RequiresApproval: hive.RequiresApproval,
		MemberCount:      hive.MemberCount,
		CreatorID:        hive.CreatorID,
		IsCreator:        state == StateCreator,
		State:            state,
		CreatedAt:        hive.CreatedAt,
		Members:          []MemberInfo{},
	}

	if state != StateMember && state != StateCreator {
		detail.RequiresJoin = true
		return detail, nil
	}

	members, err := s.MemberRepo.ListMembers(hiveID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		info := MemberInfo{UserID: m.UserID, JoinedAt: m.JoinedAt}
		if m.User != nil {
			info.Handle = m.User.Handle
			info.DisplayName = m.User.DisplayName
			info.AvatarURL = m.User.AvatarURL
		}
		detail.Members = append(detail.Members, info)
	}
	return detail, nil
}

type UpdateHiveRequest struct {
	Name            *string `json:"name"`
	AvatarURL       *string `json:"avatar_url"`
	ContractAddress *string `json:"contract_address"`
}

// Update 仅创建者可修改名称/头像/合约地址
func (s *HiveService) Update(callerID, hiveID uint, req *UpdateHiveRequest) error {
	if _, err := s.Membership.loadHiveAsCreator(hiveID, callerID); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len([]rune(name)) > 50 {
			return ErrInvalidHiveName
		}
		updates["name"] = name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.ContractAddress != nil {
		if *req.ContractAddress != "" && !gate.ValidAddress(*req.ContractAddress) {
			return ErrInvalidContractAddress
		}
		updates["contract_address"] = *req.ContractAddress
	}
	if len(updates) == 0 {
		return nil
	}
	return s.HiveRepo.Update(hiveID, updates)
}

// Delete 仅创建者可删，附属数据全部级联清除
func (s *HiveService) Delete(callerID, hiveID uint) error {
	if _, err := s.Membership.loadHiveAsCreator(hiveID, callerID); err != nil {
		return err
	}
	return s.HiveRepo.DeleteCascade(hiveID)
}
