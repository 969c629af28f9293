package domain

import "testing"

func TestThreadCollectsChainFromRoot(t *testing.T) {
	posts := []Post{
		{ID: 1, Content: "корень"},
		{ID: 2, Content: "ответ", ParentID: 1},
		{ID: 3, Content: "ответ на ответ", ParentID: 2},
		{ID: 4, Content: "посторонний"},
	}
	chain := Thread(posts, 3)
	if len(chain) != 3 {
		t.Fatalf("ожидали цепочку из 3 постов, получили %d", len(chain))
	}
	if chain[0].ID != 1 || chain[1].ID != 2 || chain[2].ID != 3 {
		t.Fatalf("ожидали порядок от корня: %v", []int64{chain[0].ID, chain[1].ID, chain[2].ID})
	}
}

func TestThreadUnknownID(t *testing.T) {
	if chain := Thread([]Post{{ID: 1}}, 42); chain != nil {
		t.Fatalf("ожидали nil для неизвестного id, получили %v", chain)
	}
}

func TestThreadTerminatesOnCycle(t *testing.T) {
	// цикл в данных недопустим, но обход обязан завершиться
	posts := []Post{
		{ID: 1, ParentID: 3},
		{ID: 2, ParentID: 1},
		{ID: 3, ParentID: 2},
	}
	chain := Thread(posts, 3)
	if len(chain) != 3 {
		t.Fatalf("ожидали обрыв цикла после 3 постов, получили %d", len(chain))
	}
}

func TestThreadBrokenParentLink(t *testing.T) {
	posts := []Post{{ID: 5, ParentID: 99}}
	chain := Thread(posts, 5)
	if len(chain) != 1 || chain[0].ID != 5 {
		t.Fatalf("ожидали цепочку из одного поста при битой ссылке")
	}
}
