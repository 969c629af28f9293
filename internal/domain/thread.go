package domain

// maxThreadDepth ограничивает обход цепочки ответов: длиннее тредов в X не бывает,
// а битая ссылка parent_id не должна превращаться в вечный цикл.
const maxThreadDepth = 100

// Thread возвращает цепочку ответов от корня до поста id включительно.
// Цепочка собирается итеративным подъёмом по parent_id; посещённые id
// запоминаются, так что цикл в данных обрывает обход, а не вешает его.
func Thread(posts []Post, id int64) []Post {
	byID := make(map[int64]Post, len(posts))
	for _, p := range posts {
		if p.ID != 0 {
			byID[p.ID] = p
		}
	}

	current, ok := byID[id]
	if !ok {
		return nil
	}

	visited := map[int64]bool{current.ID: true}
	chain := []Post{current}
	for current.ParentID != 0 && len(chain) < maxThreadDepth {
		parent, ok := byID[current.ParentID]
		if !ok || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}

	// разворачиваем: корень треда первым
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
