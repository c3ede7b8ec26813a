package aggregate

import (
	"sort"
	"strconv"
	"strings"

	"ib_dashboard/internal/models"
)

// MaxTreeDepth ограничивает глубину реферальной иерархии партнёра
const MaxTreeDepth = 3

// DefaultQualificationThreshold задаёт минимум прямых рефералов для квалификации
const DefaultQualificationThreshold = 3

// BuildTree восстанавливает трёхуровневое дерево из плоских ссылок
// на реферера. Возвращаются только узлы первого уровня, глубже
// через Children.
//
// Родитель ищется по ссылке реферера в порядке: числовой id,
// username (без учёта регистра), реферальный код. Первое совпадение
// выигрывает. Узлы, чья ссылка не равна id партнёра и не разрешилась
// ни в одного клиента, в дерево не попадают (сироты не показываются).
func BuildTree(clients []models.Client, partnerID int64, threshold int) []*models.ReferralNode {
	byID := make(map[int64]int, len(clients))
	byUsername := make(map[string]int, len(clients))
	byCode := make(map[string]int, len(clients))

	for i, c := range clients {
		if c.ID != 0 {
			byID[c.ID] = i
		}

		if c.Username != "" {
			byUsername[strings.ToLower(c.Username)] = i
		}

		if c.ReferralCode != "" {
			byCode[c.ReferralCode] = i
		}
	}

	children := make(map[int][]int)
	roots := make([]int, 0)

	for i, c := range clients {
		ref := strings.TrimSpace(c.ReferrerRef)
		if ref == "" {
			continue
		}

		// Прямой реферал партнёра становится корнем первого уровня
		if refID, err := strconv.ParseInt(ref, 10, 64); err == nil && refID == partnerID {
			roots = append(roots, i)
			continue
		}

		parent, ok := resolveParent(ref, byID, byUsername, byCode)
		if !ok || parent == i {
			continue
		}

		children[parent] = append(children[parent], i)
	}

	nodes := make([]*models.ReferralNode, 0, len(roots))
	for _, idx := range roots {
		nodes = append(nodes, buildNode(clients, idx, 1, children, threshold))
	}

	sortNodes(nodes)

	return nodes
}

// resolveParent разрешает ссылку реферера в индекс клиента-родителя
func resolveParent(ref string, byID map[int64]int, byUsername, byCode map[string]int) (int, bool) {
	if refID, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if idx, ok := byID[refID]; ok {
			return idx, true
		}
	}

	if idx, ok := byUsername[strings.ToLower(ref)]; ok {
		return idx, true
	}

	if idx, ok := byCode[ref]; ok {
		return idx, true
	}

	return 0, false
}

// buildNode строит узел и его поддерево до MaxTreeDepth
func buildNode(clients []models.Client, idx, tier int, children map[int][]int, threshold int) *models.ReferralNode {
	c := clients[idx]

	node := &models.ReferralNode{
		ClientID:    c.ID,
		Name:        c.Name,
		Username:    c.Username,
		KYCStatus:   c.KYCStatus,
		Deposit:     c.Deposit,
		Volume:      c.Lots,
		Revenue:     c.Commission,
		Tier:        tier,
		DirectCount: len(children[idx]),
	}

	node.Qualified = node.DirectCount >= threshold

	// Контакты видны только на первом уровне
	if tier == 1 {
		node.Email = c.Email
		node.Phone = c.Phone
	}

	if tier >= MaxTreeDepth {
		return node
	}

	for _, childIdx := range children[idx] {
		node.Children = append(node.Children, buildNode(clients, childIdx, tier+1, children, threshold))
	}

	sortNodes(node.Children)

	return node
}

// sortNodes упорядочивает узлы по имени; сам порядок не важен,
// но детерминированный вывод удобнее
func sortNodes(nodes []*models.ReferralNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}

		return nodes[i].ClientID < nodes[j].ClientID
	})
}

// RollUpSummary представляет свёртку неквалифицированных узлов одного уровня
type RollUpSummary struct {
	Clients int     `json:"clients"`
	Deposit float64 `json:"deposit"`
	Volume  float64 `json:"volume"`
	Revenue float64 `json:"revenue"`
}

// RollUpUnqualified делит узлы на квалифицированные и свёртку остальных.
// Суммы точные, без оценок.
func RollUpUnqualified(nodes []*models.ReferralNode) ([]*models.ReferralNode, RollUpSummary) {
	qualified := make([]*models.ReferralNode, 0, len(nodes))

	var summary RollUpSummary

	for _, node := range nodes {
		if node.Qualified {
			qualified = append(qualified, node)
			continue
		}

		summary.Clients++
		summary.Deposit += node.Deposit
		summary.Volume += node.Volume
		summary.Revenue += node.Revenue
	}

	return qualified, summary
}

// NetworkVolume считает суммарный объём поддерева (лоты всех уровней)
func NetworkVolume(nodes []*models.ReferralNode) float64 {
	var total float64

	for _, node := range nodes {
		total += node.Volume
		total += NetworkVolume(node.Children)
	}

	return total
}
